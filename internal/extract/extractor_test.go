package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/pawdocs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Extract(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

var validPDF = []byte("%PDF-1.7\n...")

func TestValidateSignature(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"pdf header", []byte("%PDF-1.4"), false},
		{"exact signature", []byte("%PDF"), false},
		{"empty", nil, true},
		{"too short", []byte("%PD"), true},
		{"png", []byte("\x89PNG\r\n"), true},
		{"lowercase", []byte("%pdf-1.4"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignature(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtract_BadSignatureRunsNoStrategy(t *testing.T) {
	s := &fakeStrategy{name: "a", text: "hello"}
	e := New(nil, s)

	_, err := e.Extract(context.Background(), []byte("not a pdf"))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Equal(t, 0, s.calls)
}

func TestExtract_FirstNonBlankWins(t *testing.T) {
	first := &fakeStrategy{name: "first", text: "  \n\t "}
	second := &fakeStrategy{name: "second", text: "Vaccination schedule"}
	third := &fakeStrategy{name: "third", text: "unused"}
	e := New(nil, first, second, third)

	text, err := e.Extract(context.Background(), validPDF)

	require.NoError(t, err)
	assert.Equal(t, "Vaccination schedule", text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
}

func TestExtract_ErrorsAreNotSurfacedWhenALaterStrategySucceeds(t *testing.T) {
	failing := &fakeStrategy{name: "failing", err: errors.New("corrupt xref")}
	ok := &fakeStrategy{name: "ok", text: "Dosage: 5mg"}
	e := New(nil, failing, ok)

	text, err := e.Extract(context.Background(), validPDF)

	require.NoError(t, err)
	assert.Equal(t, "Dosage: 5mg", text)
}

func TestExtract_AllFailWrapsLastError(t *testing.T) {
	last := errors.New("last failure")
	e := New(nil,
		&fakeStrategy{name: "a", err: errors.New("first failure")},
		&fakeStrategy{name: "b", err: last},
	)

	_, err := e.Extract(context.Background(), validPDF)

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, last)
}

func TestExtract_AllBlank(t *testing.T) {
	e := New(nil,
		&fakeStrategy{name: "a", text: ""},
		&fakeStrategy{name: "b", text: "   "},
	)

	_, err := e.Extract(context.Background(), validPDF)

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Nil(t, de.Err)
}

func TestExtract_CancelledContext(t *testing.T) {
	s := &fakeStrategy{name: "a", text: "text"}
	e := New(nil, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, validPDF)

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.calls)
}

func TestExtract_DefaultStrategiesOnMalformedPDF(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), []byte("%PDF-1.4\nthis is not really a pdf"))

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestDefaultStrategiesOrder(t *testing.T) {
	names := make([]string, 0, 3)
	for _, s := range DefaultStrategies() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"plain_text", "all_pages", "row_reconstruction"}, names)
}
