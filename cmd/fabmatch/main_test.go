package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/fabmatch"
	"github.com/poiesic/fabmatch/conversation"
	"github.com/poiesic/fabmatch/policy"
	"github.com/poiesic/fabmatch/recommend"
)

func init() {
	color.NoColor = true
}

func findCommand(app *cli.App, name string) *cli.Command {
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"seed", "reembed", "ask", "chat", "policy", "status"} {
		cmd := findCommand(app, name)
		require.NotNil(t, cmd, name)
		assert.NotNil(t, cmd.Action, name)
	}

	t.Run("top-k defaults to five", func(t *testing.T) {
		var topK *cli.IntFlag
		for _, flag := range findCommand(app, "ask").Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "top-k" {
				topK = f
			}
		}
		require.NotNil(t, topK)
		assert.Equal(t, recommend.DefaultTopK, topK.Value)
	})

	t.Run("ask requires a query", func(t *testing.T) {
		err := newApp().Run([]string{"fabmatch", "ask"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("invalid log level", func(t *testing.T) {
		err := newApp().Run([]string{"fabmatch", "--log-level", "verbose", "status"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			app := &cli.App{
				Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
				Before: setupLogger,
				Action: func(*cli.Context) error { return nil },
			}
			assert.NoError(t, app.Run([]string{"test", "--log-level", level}))
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabmatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path = "/from/file"
equipment_file = "/from/file.json"

[ai]
embedding_model = "bge-m3"
`), 0o644))

	var got *fabmatch.Config
	app := newApp()
	app.Before = nil
	app.Commands = []*cli.Command{{
		Name:  "probe",
		Flags: findCommand(newApp(), "seed").Flags,
		Action: func(c *cli.Context) error {
			var err error
			got, err = loadConfig(c)
			return err
		},
	}}

	err := app.Run([]string{"fabmatch", "--config", path, "--db", "/from/flag", "--host", "http://gpu:11434", "probe", "--batch-size", "8"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/from/flag", got.DBPath)
	assert.Equal(t, "/from/file.json", got.EquipmentFile)
	assert.Equal(t, 8, got.Ingestion.BatchSize)
	assert.Equal(t, "http://gpu:11434", got.AI.Host)
	assert.Equal(t, "http://gpu:11434/v1", got.ModelConfig().GeneratorHost)
}

type fakeStreamer struct {
	requests []recommend.Request
	err      error
}

func (f *fakeStreamer) Stream(_ context.Context, req recommend.Request) (<-chan recommend.Event, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan recommend.Event, 4)
	out <- recommend.Event{Kind: recommend.EventEquipment, SessionID: "abcd1234", Equipment: []recommend.Item{
		{EquipmentID: "EQ001", Name: "Hybrid RTA", Category: "열처리", Score: 0.84, WaferSizes: []string{"6 inch"}},
	}}
	out <- recommend.Event{Kind: recommend.EventToken, SessionID: "abcd1234", Token: "Hybrid RTA 추천"}
	out <- recommend.Event{Kind: recommend.EventDone, SessionID: "abcd1234"}
	close(out)
	return out, nil
}

func TestRunChat(t *testing.T) {
	streamer := &fakeStreamer{}
	in := strings.NewReader("6인치 RTA 장비\n\n그럼 8인치는?\n/new\nSEM\nexit\nignored\n")
	var out bytes.Buffer

	err := runChat(context.Background(), streamer, in, &out, recommend.Request{TopK: 3, UserInstitution: "KANC"})
	require.NoError(t, err)

	require.Len(t, streamer.requests, 3)
	assert.Equal(t, "", streamer.requests[0].SessionID)
	assert.Equal(t, "abcd1234", streamer.requests[1].SessionID, "session carries over")
	assert.Equal(t, "그럼 8인치는?", streamer.requests[1].Query)
	assert.Equal(t, "", streamer.requests[2].SessionID, "/new resets the session")
	assert.Equal(t, 3, streamer.requests[2].TopK)
	assert.Equal(t, "KANC", streamer.requests[2].UserInstitution)

	text := out.String()
	assert.Contains(t, text, "1. Hybrid RTA [EQ001] 0.84")
	assert.Contains(t, text, "Assistant: Hybrid RTA 추천")
	assert.Contains(t, text, "Started a new conversation.")
}

func TestRunChat_Errors(t *testing.T) {
	t.Run("request errors are shown", func(t *testing.T) {
		streamer := &fakeStreamer{err: &recommend.Error{Code: recommend.ErrorInvalidInput, Reason: "bad", Err: recommend.ErrInvalidTopK}}
		var out bytes.Buffer
		err := runChat(context.Background(), streamer, strings.NewReader("RTA\n"), &out, recommend.Request{})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "[INVALID_INPUT]")
	})

	t.Run("other errors stop the loop", func(t *testing.T) {
		boom := errors.New("boom")
		streamer := &fakeStreamer{err: boom}
		err := runChat(context.Background(), streamer, strings.NewReader("RTA\nSEM\n"), &bytes.Buffer{}, recommend.Request{})
		assert.ErrorIs(t, err, boom)
		assert.Len(t, streamer.requests, 1)
	})
}

func TestPrintResponse(t *testing.T) {
	var out bytes.Buffer
	printResponse(&out, &recommend.Response{
		Recommendations: []recommend.Item{{
			EquipmentID: "EQ011", Name: "High Temperature Furnace", Category: "열처리",
			Score: 0.9, Reason: "8인치 지원", Institution: "나노종합기술원",
		}},
		Explanation: "위 장비들을 추천드립니다.",
		SessionID:   "abcd1234",
		TurnCount:   2,
		FollowUp:    conversation.FollowUp{IsFollowUp: true, Kind: conversation.KindConditionChange},
		Fallback:    true,
	})

	text := out.String()
	assert.Contains(t, text, "(follow-up: condition_change)")
	assert.Contains(t, text, "closest matches")
	assert.Contains(t, text, "열처리 · 나노종합기술원")
	assert.Contains(t, text, "8인치 지원")
	assert.Contains(t, text, "session abcd1234 · turn 2")
}

func TestPrintPolicy(t *testing.T) {
	inactive := false
	var out bytes.Buffer
	printPolicy(&out, "/etc/policy",
		[]policy.Institution{
			{ID: "NNFC", Name: "나노종합기술원", Priority: 2},
			{ID: "KANC", Name: "한국나노기술원", Priority: 1},
			{ID: "OLD", Name: "폐쇄 기관", Priority: 3, IsActive: &inactive},
		},
		policy.Settings{
			policy.KeyMaxRecommendations: {Key: policy.KeyMaxRecommendations, Value: float64(5), Type: policy.TypeInteger},
			policy.KeyExternalVisible:    {Key: policy.KeyExternalVisible, Value: true, Type: policy.TypeBoolean},
		})

	text := out.String()
	assert.Less(t, strings.Index(text, "KANC"), strings.Index(text, "NNFC"))
	assert.Contains(t, text, "(inactive)")
	assert.Less(t, strings.Index(text, policy.KeyExternalVisible), strings.Index(text, policy.KeyMaxRecommendations))
}
