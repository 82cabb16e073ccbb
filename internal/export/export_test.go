package export

import (
	"context"
	"testing"

	"datafuse/internal/config"
	"datafuse/internal/table"
)

type fakeExporter struct{}

func (fakeExporter) Export(context.Context, table.MergedTable) error { return nil }
func (fakeExporter) Close() error                                    { return nil }

func TestRegisterAndNew(t *testing.T) {
	Register("faketest", func(context.Context, config.ExportTarget) (Exporter, error) {
		return fakeExporter{}, nil
	})

	e, err := New(context.Background(), config.ExportTarget{Kind: "faketest"})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := e.Export(context.Background(), table.MergedTable{}); err != nil {
		t.Fatalf("Export() err=%v", err)
	}

	if _, err := New(context.Background(), config.ExportTarget{Kind: "nope"}); err == nil {
		t.Fatalf("New(unknown) err=nil, want error")
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	Register("dupetest", func(context.Context, config.ExportTarget) (Exporter, error) {
		return fakeExporter{}, nil
	})
	defer func() {
		if recover() == nil {
			t.Fatalf("duplicate Register did not panic")
		}
	}()
	Register("dupetest", func(context.Context, config.ExportTarget) (Exporter, error) {
		return fakeExporter{}, nil
	})
}
