package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-rangefinder/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "cup is located at 40 centimeters")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.Format.SampleRate != 24000 {
			t.Errorf("expected 24000 sample rate, got %d", result.Format.SampleRate)
		}
	})

	t.Run("Texts are recorded", func(t *testing.T) {
		texts := mock.Texts()
		if len(texts) != 1 || texts[0] != "cup is located at 40 centimeters" {
			t.Errorf("unexpected texts: %v", texts)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		if err := mock.Close(); err != nil {
			t.Fatal(err)
		}
		if !mock.Closed() {
			t.Error("expected closed")
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)

	if _, err := mock.Synthesize(context.Background(), "hello"); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if err := mock.Health(context.Background()); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}

	cfg := tts.DefaultConfig()
	cfg.Apply(
		tts.WithAPIKey("k"),
		tts.WithVoice(tts.VoiceOnyx),
		tts.WithSpeed(1.25),
		tts.WithRetry(5, time.Second),
	)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Voice != tts.VoiceOnyx || cfg.Speed != 1.25 || cfg.MaxRetries != 5 {
		t.Errorf("options not applied: %+v", cfg)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","code":"overloaded"}}`))
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body["input"] != "car is located at 900 centimeters" || body["voice"] != tts.VoiceNova {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ID3fakeaudio"))
	}))
	defer srv.Close()

	provider, err := tts.NewOpenAI(
		tts.WithAPIKey("secret"),
		tts.WithBaseURL(srv.URL),
		tts.WithRetry(2, time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "car is located at 900 centimeters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != "ID3fakeaudio" {
		t.Errorf("unexpected audio %q", result.Audio)
	}
	if result.Format.Encoding != tts.EncodingMP3 {
		t.Errorf("expected mp3, got %s", result.Format.Encoding)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected one retry, got %d attempts", attempts.Load())
	}
}

func TestOpenAIModelAndFormat(t *testing.T) {
	var model, format any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		model, format = body["model"], body["response_format"]
		_, _ = w.Write([]byte("RIFFfakeaudio"))
	}))
	defer srv.Close()

	provider, err := tts.NewOpenAI(
		tts.WithAPIKey("secret"),
		tts.WithBaseURL(srv.URL),
		tts.WithModel("tts-1-hd"),
		tts.WithOutputFormat(tts.EncodingWAV),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer provider.Close()

	result, err := provider.Synthesize(context.Background(), "dog is located at 120 centimeters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "tts-1-hd" || format != "wav" {
		t.Errorf("request carried model %v format %v", model, format)
	}
	if result.Format.Encoding != tts.EncodingWAV {
		t.Errorf("expected wav, got %s", result.Format.Encoding)
	}
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name string
		want tts.Encoding
		ok   bool
	}{
		{"mp3", tts.EncodingMP3, true},
		{" WAV ", tts.EncodingWAV, true},
		{"opus", tts.EncodingOpus, true},
		{"flac", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, err := tts.ParseEncoding(tc.name)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseEncoding(%q) = %q, %v", tc.name, got, err)
		}
	}
}

func TestOpenAIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	provider, err := tts.NewOpenAI(tts.WithAPIKey("nope"), tts.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	_, err = provider.Synthesize(context.Background(), "hello")
	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 401 || apiErr.Code != "invalid_api_key" || apiErr.IsRetryable() {
		t.Errorf("unexpected error: %+v", apiErr)
	}

	if err := provider.Health(context.Background()); err == nil {
		t.Error("expected unhealthy")
	}

	if _, err := provider.Synthesize(context.Background(), "  "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	failing := tts.WithError(errors.New("cloud down"))
	backup := tts.NewMock()

	t.Run("requires providers", func(t *testing.T) {
		if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("falls back", func(t *testing.T) {
		chain, err := tts.NewChain(nil, failing, backup)
		if err != nil {
			t.Fatal(err)
		}
		result, err := chain.Synthesize(ctx, "hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Provider != "mock" {
			t.Errorf("expected mock provider, got %s", result.Provider)
		}
		if err := chain.Health(ctx); err != nil {
			t.Errorf("expected healthy chain, got %v", err)
		}
	})

	t.Run("aggregates failures", func(t *testing.T) {
		second := errors.New("local down")
		chain, _ := tts.NewChain(nil, failing, tts.WithError(second))
		_, err := chain.Synthesize(ctx, "hi")
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
			t.Fatalf("expected ChainError with 2 errors, got %v", err)
		}
		if !errors.Is(err, second) {
			t.Error("expected errors.Is to find the last provider error")
		}
	})

	t.Run("closes all", func(t *testing.T) {
		a, b := tts.NewMock(), tts.NewMock()
		chain, _ := tts.NewChain(nil, a, b)
		if err := chain.Close(); err != nil {
			t.Fatal(err)
		}
		if !a.Closed() || !b.Closed() || chain.Len() != 2 {
			t.Error("expected every provider closed")
		}
	})
}

func TestCommandNotFound(t *testing.T) {
	_, err := tts.NewCommand("definitely-not-a-synthesizer", nil)
	if !errors.Is(err, tts.ErrCommandNotFound) {
		t.Errorf("expected ErrCommandNotFound, got %v", err)
	}
}

func TestProviderError(t *testing.T) {
	inner := errors.New("inner")
	err := tts.WrapError("test", inner)
	if !errors.Is(err, inner) {
		t.Error("expected wrapped error")
	}
	if err.Error() != "tts [test]: inner" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if tts.WrapError("test", nil) != nil {
		t.Error("expected nil")
	}
}

func TestEncodingExtension(t *testing.T) {
	tests := map[tts.Encoding]string{
		tts.EncodingMP3:  ".mp3",
		tts.EncodingWAV:  ".wav",
		tts.EncodingPCM:  ".pcm",
		tts.EncodingOpus: ".opus",
	}
	for enc, want := range tests {
		if got := enc.Extension(); got != want {
			t.Errorf("%s: got %s want %s", enc, got, want)
		}
	}
}
