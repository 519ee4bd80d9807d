package emaildelivery

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	payloadKind             = "kind"
	payloadUserID           = "user_id"
	payloadEmail            = "email"
	payloadEmailVerifyLink  = "email_verify_link"
	payloadResetLink        = "password_reset_link"
	payloadUserInputCode    = "user_input_code"
	payloadURLWithLinkCode  = "url_with_link_code"
	payloadCodeLifetimeMS   = "code_lifetime_ms"
	payloadPreAuthSessionID = "pre_auth_session_id"
	payloadUserContext      = "user_context"
)

// EncodePayload flattens an input into a map that survives a JSON round trip,
// for recipes that hand deliveries to a queue or an outbox. Strings are stored
// trimmed, so DecodePayload of the result encodes back to the same map.
func EncodePayload(input Input) (map[string]any, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{payloadKind: string(input.Request.Kind())}
	switch typed := input.Request.(type) {
	case EmailVerification:
		payload[payloadUserID] = typed.User.ID.String()
		payload[payloadEmail] = strings.TrimSpace(typed.User.Email)
		payload[payloadEmailVerifyLink] = strings.TrimSpace(typed.EmailVerifyLink)
	case PasswordReset:
		payload[payloadUserID] = typed.User.ID.String()
		payload[payloadEmail] = strings.TrimSpace(typed.User.Email)
		payload[payloadResetLink] = strings.TrimSpace(typed.PasswordResetLink)
	case PasswordlessLogin:
		payload[payloadEmail] = strings.TrimSpace(typed.Email)
		payload[payloadUserInputCode] = strings.TrimSpace(typed.UserInputCode)
		payload[payloadURLWithLinkCode] = strings.TrimSpace(typed.URLWithLinkCode)
		payload[payloadCodeLifetimeMS] = typed.CodeLifetime.Milliseconds()
		payload[payloadPreAuthSessionID] = strings.TrimSpace(typed.PreAuthSessionID)
	default:
		return nil, payloadError(
			fmt.Sprintf("emaildelivery: unsupported request type %T", input.Request),
			nil,
		)
	}
	if len(input.UserContext) > 0 {
		userContext := make(map[string]any, len(input.UserContext))
		for key, value := range input.UserContext {
			userContext[key] = value
		}
		payload[payloadUserContext] = userContext
	}
	return payload, nil
}

// DecodePayload rebuilds the input encoded by EncodePayload and validates it.
func DecodePayload(payload map[string]any) (Input, error) {
	kind := Kind(stringValue(payload, payloadKind))
	var req Request
	switch kind {
	case KindEmailVerification, KindPasswordReset:
		userID, err := uuid.Parse(stringValue(payload, payloadUserID))
		if err != nil {
			return Input{}, payloadError("emaildelivery: payload user id is invalid", map[string]any{
				"kind": string(kind),
			})
		}
		user := UserIdentity{ID: userID, Email: stringValue(payload, payloadEmail)}
		if kind == KindEmailVerification {
			req = EmailVerification{User: user, EmailVerifyLink: stringValue(payload, payloadEmailVerifyLink)}
		} else {
			req = PasswordReset{User: user, PasswordResetLink: stringValue(payload, payloadResetLink)}
		}
	case KindPasswordlessLogin:
		lifetime, err := millisValue(payload[payloadCodeLifetimeMS])
		if err != nil {
			return Input{}, payloadError("emaildelivery: payload code lifetime is invalid", map[string]any{
				"kind": string(kind),
			})
		}
		req = PasswordlessLogin{
			Email:            stringValue(payload, payloadEmail),
			UserInputCode:    stringValue(payload, payloadUserInputCode),
			URLWithLinkCode:  stringValue(payload, payloadURLWithLinkCode),
			CodeLifetime:     lifetime,
			PreAuthSessionID: stringValue(payload, payloadPreAuthSessionID),
		}
	default:
		return Input{}, payloadError("emaildelivery: payload kind is unknown", map[string]any{
			"kind": string(kind),
		})
	}

	input := Input{Request: req}
	if userContext, ok := payload[payloadUserContext].(map[string]any); ok && len(userContext) > 0 {
		input.UserContext = userContext
	}
	if err := input.Validate(); err != nil {
		return Input{}, err
	}
	return input, nil
}

func EncodeJSON(input Input) ([]byte, error) {
	payload, err := EncodePayload(input)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

func DecodeJSON(raw []byte) (Input, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Input{}, payloadError("emaildelivery: payload is not a json object", nil)
	}
	return DecodePayload(payload)
}

func stringValue(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

func millisValue(value any) (time.Duration, error) {
	switch typed := value.(type) {
	case int:
		return time.Duration(typed) * time.Millisecond, nil
	case int64:
		return time.Duration(typed) * time.Millisecond, nil
	case float64:
		return time.Duration(int64(typed)) * time.Millisecond, nil
	case json.Number:
		millis, err := typed.Int64()
		if err != nil {
			return 0, err
		}
		return time.Duration(millis) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("unsupported lifetime value %T", value)
	}
}
