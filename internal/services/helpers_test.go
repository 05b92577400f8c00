package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/learninglab-backend/internal/data/repos"
	"github.com/yungbote/learninglab-backend/internal/data/repos/testutil"
	"github.com/yungbote/learninglab-backend/internal/inference/engine/mock"
	"github.com/yungbote/learninglab-backend/internal/inference/port"
	"github.com/yungbote/learninglab-backend/internal/platform/apierr"
	"github.com/yungbote/learninglab-backend/internal/platform/logger"
)

type testEnv struct {
	db       *gorm.DB
	eng      *mock.Engine
	plans    repos.CoursePlanRepo
	callLogs repos.CallLogRepo
	runner   *ChainRunner
	log      *logger.Logger
}

func newTestEnv(t *testing.T, eng *mock.Engine, opts ...RunnerOption) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	callLogs := repos.NewCallLogRepo(db, log)
	caller := port.New(eng, port.WithLogger(log))
	return &testEnv{
		db:       db,
		eng:      eng,
		plans:    repos.NewCoursePlanRepo(db, log),
		callLogs: callLogs,
		runner:   NewChainRunner(caller, callLogs, log, opts...),
		log:      log,
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error with status %d, got %v", status, err)
	}
	if ae.Status != status {
		t.Fatalf("expected status %d, got %d (%v)", status, ae.Status, err)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]CallEvent
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]CallEvent{}
	}
	p.events[channel] = append(p.events[channel], v.(CallEvent))
	return nil
}

var sampleInfo = CourseInfo{
	Title:         "Acroyoga Jam",
	Description:   "A weekly peer-taught acroyoga course",
	TopicAndFocus: "L-basing and washing machines",
}
