package http

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"trickia-quiz/internal/app"
	"trickia-quiz/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	bank, err := memory.NewBuiltinQuestionBank()
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	service := app.NewQuizService(
		memory.NewSessionStore(),
		[]app.QuestionSource{bank},
		memory.NewSeenStore(),
		memory.NewProfileRepository(),
		app.Options{Logger: log.New(io.Discard, "", 0)},
	)

	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}
