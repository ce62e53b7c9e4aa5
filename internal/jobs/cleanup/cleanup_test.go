package cleanup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
)

func TestRunDeletesOnlyOldUnreferencedObjects(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

	store := &fakeStore{objects: []mediasvc.ObjectInfo{
		{Key: mediasvc.PrefixPaymentProofs + "1/old-orphan.png", LastModified: now.Add(-48 * time.Hour)},
		{Key: mediasvc.PrefixPaymentProofs + "1/old-kept.png", LastModified: now.Add(-48 * time.Hour)},
		{Key: mediasvc.PrefixRecipeThumbnails + "3/fresh-orphan.jpg", LastModified: now.Add(-time.Hour)},
		{Key: mediasvc.PrefixRecipeImages + "3/old-orphan.webp", LastModified: now.Add(-72 * time.Hour)},
	}}
	refs := &fakeRefs{referenced: map[string]struct{}{
		mediasvc.PrefixPaymentProofs + "1/old-kept.png": {},
	}}

	job := NewOrphanSweepJob(store, refs, 24*time.Hour, nil)
	job.now = func() time.Time { return now }

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	if report.Scanned != 4 || report.Deleted != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(store.deleted) != 2 ||
		store.deleted[0] != mediasvc.PrefixPaymentProofs+"1/old-orphan.png" ||
		store.deleted[1] != mediasvc.PrefixRecipeImages+"3/old-orphan.webp" {
		t.Fatalf("unexpected deletions: %v", store.deleted)
	}
}

func TestRunDryRunKeepsObjects(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{objects: []mediasvc.ObjectInfo{
		{Key: mediasvc.PrefixProfilePictures + "5/a.png", LastModified: now.Add(-72 * time.Hour)},
	}}

	job := NewOrphanSweepJob(store, &fakeRefs{}, time.Hour, nil)
	job.now = func() time.Time { return now }
	job.DryRun(true)

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run sweep: %v", err)
	}
	if report.Deleted != 1 || len(store.deleted) != 0 {
		t.Fatalf("dry run must only report: report=%+v deleted=%v", report, store.deleted)
	}
}

func TestRunCountsDeleteFailures(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		objects:   []mediasvc.ObjectInfo{{Key: mediasvc.PrefixPaymentProofs + "2/x.png", LastModified: now.Add(-72 * time.Hour)}},
		deleteErr: errors.New("s3 down"),
	}

	job := NewOrphanSweepJob(store, &fakeRefs{}, time.Hour, nil)
	job.now = func() time.Time { return now }

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("delete failures must not abort the sweep: %v", err)
	}
	if report.Failed != 1 || report.Deleted != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunFailsWhenReferencesUnavailable(t *testing.T) {
	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{objects: []mediasvc.ObjectInfo{
		{Key: mediasvc.PrefixPaymentProofs + "2/x.png", LastModified: now.Add(-72 * time.Hour)},
	}}

	job := NewOrphanSweepJob(store, &fakeRefs{err: errors.New("db down")}, time.Hour, nil)
	job.now = func() time.Time { return now }

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error when references cannot be resolved")
	}
	if len(store.deleted) != 0 {
		t.Fatalf("nothing may be deleted without reference data: %v", store.deleted)
	}
}

type fakeStore struct {
	objects   []mediasvc.ObjectInfo
	deleted   []string
	deleteErr error
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]mediasvc.ObjectInfo, error) {
	var out []mediasvc.ObjectInfo
	for _, obj := range f.objects {
		if strings.HasPrefix(obj.Key, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeRefs struct {
	referenced map[string]struct{}
	err        error
}

func (f *fakeRefs) ReferencedKeys(_ context.Context, keys []string) (map[string]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]struct{}{}
	for _, key := range keys {
		if _, ok := f.referenced[key]; ok {
			out[key] = struct{}{}
		}
	}
	return out, nil
}
