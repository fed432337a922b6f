package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundTaskSuccess(t *testing.T) {

	var got int
	NewBackgroundTask(nil, func() (*int, error) {
		v := 42
		return &v, nil
	}).OnSuccess(func(v int) { got = v }).Run()

	assert.Equal(t, 42, got)
}

func TestBackgroundTaskRecover(t *testing.T) {

	var got string
	NewBackgroundTask(nil, func() (*string, error) {
		return nil, errors.New("bus error")
	}).Recover(func(err error) string {
		return "recovered: " + err.Error()
	}).OnSuccess(func(v string) { got = v }).Run()

	assert.Equal(t, "recovered: bus error", got)
}

func TestBackgroundTaskTimeout(t *testing.T) {

	var failed error
	called := false
	NewBackgroundTask(nil, func() (*int, error) {
		time.Sleep(500 * time.Millisecond)
		v := 1
		return &v, nil
	}).WithTimeout(50 * time.Millisecond).OnError(func(err error) {
		failed = err
	}).OnSuccess(func(int) { called = true }).Run()

	assert.Error(t, failed)
	assert.False(t, called)
}

func TestMapBackgroundTask(t *testing.T) {

	var got string
	task := NewBackgroundTask(nil, func() (*int, error) {
		v := 7
		return &v, nil
	})
	MapBackgroundTask(task, func(v *int) *string {
		s := "slave 7"
		if *v != 7 {
			s = "wrong"
		}
		return &s
	}).OnSuccess(func(v string) { got = v }).Run()

	assert.Equal(t, "slave 7", got)
}

func TestBackgroundTaskPanicRecovered(t *testing.T) {

	var got error
	NewBackgroundTask(nil, func() (*int, error) {
		panic("bus fault")
	}).Recover(func(err error) int {
		got = err
		return -1
	}).Run()

	assert.Error(t, got)
}

func TestBackgroundTaskGoPipeTo(t *testing.T) {

	as := actor.NewActorSystem()
	results := make(chan int, 1)
	release := make(chan struct{})
	answered := make(chan struct{}, 1)

	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			NewBackgroundTask(ctx, func() (*int, error) {
				<-release
				v := 5
				return &v, nil
			}).GoPipeTo(ctx.Self())
		case string:
			// the mailbox is served while the task is blocked
			answered <- struct{}{}
		case int:
			results <- msg
		}
	}))

	as.Root.Send(pid, "ping")
	select {
	case <-answered:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "actor blocked by background task")
	}

	close(release)
	select {
	case v := <-results:
		assert.Equal(t, 5, v)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no result")
	}

	as.Shutdown()
}
