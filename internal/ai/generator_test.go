package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	failModels map[string]error
	calls      []string
}

func (f *fakeClient) GenerateContent(ctx context.Context, model, prompt, sysInstruction string) (string, int, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.failModels[model]; ok {
		return "", 0, err
	}
	return "reply from " + model, 10, nil
}

func (f *fakeClient) GenerateContentStream(ctx context.Context, model, prompt, sysInstruction string, onPartial func(string)) (string, int, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.failModels[model]; ok {
		return "", 0, err
	}
	onPartial("partial")
	onPartial("partial full")
	return "partial full", 12, nil
}

func (f *fakeClient) GenerateWithImage(ctx context.Context, model, prompt string, imageBytes []byte, mime string) (string, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.failModels[model]; ok {
		return "", err
	}
	return "image reply from " + model, nil
}

func TestGenerateFallsBackOnNotFound(t *testing.T) {
	client := &fakeClient{failModels: map[string]error{
		"primary": errModelNotFound,
	}}
	g := NewGenerator(client, "primary", []string{"secondary"})

	result, err := g.Generate(context.Background(), "hello", Options{})
	require.NoError(t, err)
	require.Equal(t, "secondary", result.Model)
	require.Equal(t, []string{"primary", "secondary"}, client.calls)

	// primary should now be pruned: the next call skips straight to secondary.
	client.calls = nil
	_, err = g.Generate(context.Background(), "again", Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"secondary"}, client.calls)
}

func TestGenerateAllModelsFail(t *testing.T) {
	client := &fakeClient{failModels: map[string]error{
		"primary":   errors.New("transient"),
		"secondary": errors.New("transient"),
	}}
	g := NewGenerator(client, "primary", []string{"secondary"})

	_, err := g.Generate(context.Background(), "hello", Options{})
	require.ErrorIs(t, err, ErrAllModelsFailed)
}

func TestGenerateStreamEmitsCumulativePartials(t *testing.T) {
	client := &fakeClient{}
	g := NewGenerator(client, "primary", nil)

	var partials []string
	result, err := g.GenerateStream(context.Background(), "hello", Options{}, func(p Partial) {
		partials = append(partials, p.Text)
	})
	require.NoError(t, err)
	require.Equal(t, "partial full", result.Final)
	require.Equal(t, []string{"partial", "partial full"}, partials)
}

func TestTruncateWords(t *testing.T) {
	require.Equal(t, "a b c", TruncateWords("a b c", 5))
	require.Equal(t, "a b c...", TruncateWords("a b c d e", 3))
}
