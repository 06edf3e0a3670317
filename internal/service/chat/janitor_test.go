package chat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	chat "github.com/skinmatch/chatbot/backend/internal/service/chat"
)

func TestJanitorEvictsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := chat.NewMemoryStore(chat.WithTTL(time.Nanosecond))
	store.Create(sampleContext())

	janitor := chat.NewJanitor(store, 5*time.Millisecond)
	janitor.Start()
	janitor.Start()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	janitor.Stop()
	janitor.Stop()
}

func TestJanitorStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	janitor := chat.NewJanitor(chat.NewMemoryStore(), 0)
	janitor.Stop()
	janitor.Start()
}
