package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
	"github.com/skinmatch/chatbot/backend/internal/service/ai"
	"github.com/skinmatch/chatbot/backend/internal/service/consult"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{chat.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: bad", consult.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", chat.ErrInvalidPatch), http.StatusBadRequest},
		{fmt.Errorf("%w after 1s", ai.ErrModelTimeout), http.StatusGatewayTimeout},
		{consult.ErrModelUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", ai.ErrModelFailure, context.Canceled), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}
