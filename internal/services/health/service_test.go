package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusWithoutChecks(t *testing.T) {
	t.Parallel()

	if st := NewService().Status(context.Background()); !st.OK || st.Checks != nil {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestStatusReportsFailingCheck(t *testing.T) {
	t.Parallel()

	svc := NewService()
	svc.Register("db", func(context.Context) error { return nil })
	svc.Register("rasterizer", func(context.Context) error { return errors.New("engine unavailable") })
	svc.Register("ignored", nil)

	st := svc.Status(context.Background())
	if st.OK {
		t.Fatalf("expected not ok")
	}
	if st.Checks["db"] != "ok" || st.Checks["rasterizer"] != "engine unavailable" {
		t.Fatalf("unexpected checks: %+v", st.Checks)
	}
	if _, ok := st.Checks["ignored"]; ok {
		t.Fatalf("nil check must not be registered")
	}
}
