package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/audit/metrics"
	"audittrail/pkg/platform/audit/mocks"
	"audittrail/pkg/principal"
	"audittrail/pkg/requestcontext"
)

type RecorderSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	entity  audit.Ref
	now     time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.entity = audit.Ref{Type: "Tenant", ID: "tenant-42"}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RecorderSuite) newRecorder(opts ...audit.Option) *audit.Recorder {
	opts = append([]audit.Option{
		audit.WithLogger(s.logger),
		audit.WithMetrics(s.metrics),
		audit.WithNow(func() time.Time { return s.now }),
	}, opts...)
	return audit.NewRecorder(s.store, opts...)
}

func (s *RecorderSuite) ctxWith(p principal.Principal) context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now.Add(-time.Minute))
	return principal.Set(ctx, p)
}

func (s *RecorderSuite) TestPrincipalPresent() {
	var stored audit.Record
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r audit.Record) error {
			stored = r
			return nil
		})

	err := s.newRecorder().Record(s.ctxWith(principal.Principal{ID: "user-7", IP: "203.0.113.9"}), s.entity, audit.ActionUpdate, "")

	s.Require().NoError(err)
	s.False(stored.ID.IsNil())
	s.Equal("Tenant", stored.AuditableType)
	s.Equal("tenant-42", stored.AuditableID)
	s.Equal(audit.ActionUpdate, stored.Action)
	s.Require().NotNil(stored.PrincipalID)
	s.Equal("user-7", *stored.PrincipalID)
	s.Require().NotNil(stored.PrincipalIP)
	s.Equal("203.0.113.9", *stored.PrincipalIP)
	s.Equal(s.now, stored.CreatedAt)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.RecordsWritten.WithLabelValues("Tenant", "UPDATE")))
}

func (s *RecorderSuite) TestPrincipalWithoutIP() {
	var stored audit.Record
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r audit.Record) error {
			stored = r
			return nil
		})

	err := s.newRecorder().Record(s.ctxWith(principal.Principal{ID: "cron"}), s.entity, audit.ActionCreate, "")

	s.Require().NoError(err)
	s.Require().NotNil(stored.PrincipalID)
	s.Nil(stored.PrincipalIP)
}

func (s *RecorderSuite) TestNoPrincipalSkip() {
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	err := s.newRecorder().Record(context.Background(), s.entity, audit.ActionCreate, "")

	s.Require().NoError(err)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.RecordsSkipped.WithLabelValues("Tenant")))
}

func (s *RecorderSuite) TestNoPrincipalFail() {
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	err := s.newRecorder(audit.WithPolicy(audit.PolicyFail)).Record(context.Background(), s.entity, audit.ActionDestroy, "")

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePrincipalUnavailable))
	s.ErrorIs(err, principal.ErrUnavailable)
	s.Contains(err.Error(), "destroy Tenant tenant-42")
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.RecordsRejected.WithLabelValues("Tenant")))
}

func (s *RecorderSuite) TestNoPrincipalRecordAnonymous() {
	var stored audit.Record
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r audit.Record) error {
			stored = r
			return nil
		})

	ctx := principal.Install(context.Background(), principal.Source{IP: func() string { return "198.51.100.4" }})
	err := s.newRecorder().Record(ctx, s.entity, audit.ActionCreate, audit.PolicyRecordAnonymous)

	s.Require().NoError(err)
	s.True(stored.IsAnonymous())
	s.Nil(stored.PrincipalIP)
}

func (s *RecorderSuite) TestCallPolicyOverridesDefault() {
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	rec := s.newRecorder(audit.WithPolicy(audit.PolicyRecordAnonymous))
	s.Equal(audit.PolicyRecordAnonymous, rec.Policy())

	s.Require().NoError(rec.Record(context.Background(), s.entity, audit.ActionCreate, audit.PolicySkip))
}

func (s *RecorderSuite) TestClearedContextIsNoPrincipal() {
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	ctx := principal.Clear(s.ctxWith(principal.Principal{ID: "user-1"}))
	err := s.newRecorder(audit.WithPolicy(audit.PolicyFail)).Record(ctx, s.entity, audit.ActionCreate, "")

	s.True(dErrors.HasCode(err, dErrors.CodePrincipalUnavailable))
}

func (s *RecorderSuite) TestStoreFailureIsDistinguishable() {
	storeErr := errors.New("disk full")
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(storeErr)

	err := s.newRecorder().Record(s.ctxWith(principal.Principal{ID: "user-1"}), s.entity, audit.ActionCreate, "")

	s.Require().Error(err)
	s.ErrorIs(err, audit.ErrWriteFailed)
	s.ErrorIs(err, storeErr)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.WriteFailures))
}

func (s *RecorderSuite) TestUnknownActionRejected() {
	s.store.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	err := s.newRecorder().Record(s.ctxWith(principal.Principal{ID: "user-1"}), s.entity, audit.Action("PATCH"), "")

	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *RecorderSuite) TestTrail() {
	want := []audit.Record{audit.NewRecord(s.entity, audit.ActionCreate, "u", "", s.now)}
	s.store.EXPECT().ListByAuditable(gomock.Any(), s.entity).Return(want, nil)

	got, err := s.newRecorder().Trail(context.Background(), s.entity)

	s.Require().NoError(err)
	s.Equal(want, got)
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]audit.Policy{
		"":                 audit.PolicySkip,
		"skip":             audit.PolicySkip,
		" FAIL ":           audit.PolicyFail,
		"record_anonymous": audit.PolicyRecordAnonymous,
	}
	for in, want := range cases {
		got, err := audit.ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := audit.ParsePolicy("ignore"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
