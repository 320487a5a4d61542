package wire

import (
	"modelgw/internal/generation"
	"modelgw/pkg/types"
)

// ModelCard describes m for GET /v1/models.
func ModelCard(m types.Model) types.ModelCard {
	owned := m.OwnedBy
	if owned == "" {
		owned = types.DefaultOwnedBy
	}
	created := m.Created
	if created == 0 {
		created = now().Unix()
	}
	perm := m.Permission
	if perm == nil {
		perm = []string{}
	}
	return types.ModelCard{
		ID:         m.ID,
		Object:     types.ObjectModel,
		Created:    created,
		OwnedBy:    owned,
		Permission: perm,
	}
}

// ModelList wraps the given models in a list envelope.
func ModelList(models []types.Model) types.ModelList {
	data := make([]types.ModelCard, 0, len(models))
	for _, m := range models {
		data = append(data, ModelCard(m))
	}
	return types.ModelList{Object: types.ObjectList, Data: data}
}

// ErrorResponse converts a backend error into the client envelope. The
// internal message is retained on the struct for logging only.
func ErrorResponse(e generation.ErrorInfo) types.ErrorResponse {
	param := e.Params
	if param == nil {
		param = map[string]any{}
	}
	typ := e.Type
	if typ == "" {
		typ = "InternalServerError"
	}
	return types.ErrorResponse{
		Object:          types.ObjectError,
		Message:         e.Message,
		InternalMessage: e.InternalMessage,
		Type:            typ,
		Param:           param,
		Code:            e.Code,
	}
}

// NewErrorResponse builds an envelope for errors raised outside a backend,
// such as malformed requests.
func NewErrorResponse(code int, typ, message, internal string) types.ErrorResponse {
	return types.ErrorResponse{
		Object:          types.ObjectError,
		Message:         message,
		InternalMessage: internal,
		Type:            typ,
		Param:           map[string]any{},
		Code:            code,
	}
}
