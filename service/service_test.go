package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quadgraph/qgdb/algebra"
	"github.com/quadgraph/qgdb/quad"
	"github.com/quadgraph/qgdb/service"
)

type fakeIterator struct {
	rows []service.Solution
	i    int
}

func (f *fakeIterator) Next(ctx context.Context) bool {
	if f.i >= len(f.rows) {
		return false
	}
	f.i++
	return true
}
func (f *fakeIterator) Solution() service.Solution { return f.rows[f.i-1] }
func (f *fakeIterator) Err() error                  { return nil }
func (f *fakeIterator) Close() error                { return nil }

func TestHandleDispatchesToRegisteredIRI(t *testing.T) {
	reg := service.NewRegistry()
	reg.Register("http://ex/svc", func(ctx context.Context, pattern algebra.GraphPattern, baseIRI string) (service.Iterator, error) {
		return &fakeIterator{rows: []service.Solution{{"x": quad.IRI("http://ex/a")}}}, nil
	})

	it, err := reg.Handle(context.Background(), "http://ex/svc", algebra.Values{}, "")
	require.NoError(t, err)
	require.True(t, it.Next(context.Background()))
	require.Equal(t, quad.IRI("http://ex/a"), it.Solution()["x"])
	require.False(t, it.Next(context.Background()))
}

func TestHandleFallsBackToDefault(t *testing.T) {
	reg := service.NewRegistry()
	called := false
	reg.Default = func(ctx context.Context, pattern algebra.GraphPattern, baseIRI string) (service.Iterator, error) {
		called = true
		return &fakeIterator{}, nil
	}
	_, err := reg.Handle(context.Background(), "http://ex/unregistered", algebra.Values{}, "")
	require.NoError(t, err)
	require.True(t, called)
}

func TestHandleErrorsWithNoHandler(t *testing.T) {
	reg := service.NewRegistry()
	_, err := reg.Handle(context.Background(), "http://ex/unregistered", algebra.Values{}, "")
	require.Error(t, err)
}

func TestRegisterReplacesExistingHandler(t *testing.T) {
	reg := service.NewRegistry()
	reg.Register("http://ex/svc", func(ctx context.Context, pattern algebra.GraphPattern, baseIRI string) (service.Iterator, error) {
		return &fakeIterator{rows: []service.Solution{{"v": quad.XSDString("first")}}}, nil
	})
	reg.Register("http://ex/svc", func(ctx context.Context, pattern algebra.GraphPattern, baseIRI string) (service.Iterator, error) {
		return &fakeIterator{rows: []service.Solution{{"v": quad.XSDString("second")}}}, nil
	})
	it, err := reg.Handle(context.Background(), "http://ex/svc", algebra.Values{}, "")
	require.NoError(t, err)
	require.True(t, it.Next(context.Background()))
	require.Equal(t, quad.XSDString("second"), it.Solution()["v"])
}
