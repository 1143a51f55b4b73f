package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStore_PutGetRemove(t *testing.T) {
	store := NewJobStore(4, time.Hour)

	_, err := store.Get("job_1")
	assert.ErrorIs(t, err, ErrJobNotFound)

	store.Put(&Job{JobID: "job_1", Status: StatusCompleted})
	job, err := store.Get("job_1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 1, store.Len())

	store.Put(&Job{JobID: "job_1", Status: StatusFailed})
	job, err = store.Get("job_1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)

	store.Remove("job_1")
	_, err = store.Get("job_1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store := NewJobStore(2, time.Hour)

	store.Put(&Job{JobID: "job_1"})
	store.Put(&Job{JobID: "job_2"})
	_, err := store.Get("job_1")
	require.NoError(t, err)
	store.Put(&Job{JobID: "job_3"})

	_, err = store.Get("job_2")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = store.Get("job_1")
	assert.NoError(t, err)
}

func TestJobStore_Expires(t *testing.T) {
	store := NewJobStore(4, 20*time.Millisecond)
	store.Put(&Job{JobID: "job_1"})

	require.Eventually(t, func() bool {
		_, err := store.Get("job_1")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
