package sqlstore

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-supertokens/core"
	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

const DefaultOutboxRecipeID = "sql_email_outbox"

// EmailOutboxRecipe takes over email delivery by writing each request to the
// outbox table. An EmailOutboxDispatcher sends them later.
type EmailOutboxRecipe struct {
	id    string
	store *EmailOutboxStore
}

func NewEmailOutboxRecipe(store *EmailOutboxStore, recipeID string) *EmailOutboxRecipe {
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		recipeID = DefaultOutboxRecipeID
	}
	return &EmailOutboxRecipe{id: recipeID, store: store}
}

func (r *EmailOutboxRecipe) RecipeID() string {
	if r == nil {
		return ""
	}
	return r.id
}

func (r *EmailOutboxRecipe) SendEmail(ctx context.Context, input emaildelivery.Input) error {
	if r == nil || r.store == nil {
		return goerrors.New("sqlstore: email outbox store is required", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.ClientErrorInternal)
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if _, err := r.store.Save(ctx, r.id, input); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "sqlstore: persist email delivery failed").
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.ClientErrorInternal)
	}
	return nil
}

var (
	_ core.Recipe                 = (*EmailOutboxRecipe)(nil)
	_ emaildelivery.EmailDelivery = (*EmailOutboxRecipe)(nil)
)
