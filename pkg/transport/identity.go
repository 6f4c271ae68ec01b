package transport

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"orderservice/pkg/order/domain/model"
)

// Identity is established by the gateway in front of this service and forwarded in headers.
const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
	AdminRole      = "admin"
)

var ErrUnauthenticated = errors.New("caller identity is missing or invalid")

func ParsePrincipal(userID, role string) (model.Principal, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil || id == uuid.Nil {
		return model.Principal{}, ErrUnauthenticated
	}
	return model.Principal{
		UserID:  id,
		IsAdmin: strings.EqualFold(strings.TrimSpace(role), AdminRole),
	}, nil
}

func principalFromRequest(r *http.Request) (model.Principal, error) {
	return ParsePrincipal(r.Header.Get(UserIDHeader), r.Header.Get(UserRoleHeader))
}
