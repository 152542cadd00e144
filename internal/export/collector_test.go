package export

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

func TestCollectorConcurrentAppends(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := fmt.Sprintf("https://example.com/%d", i)
			c.Record(crawler.MetadataRecord{URL: u})
			c.Skip(crawler.SkipEntry{URL: u})
			c.Error(crawler.ErrorEntry{URL: u})
		}()
	}
	wg.Wait()

	assert.Equal(t, Counts{Records: 50, Skipped: 50, Errors: 50}, c.Counts())
}

func TestCollectorSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Record(crawler.MetadataRecord{URL: "a"})
	snap := c.Snapshot()
	snap.Records[0].URL = "changed"
	c.Record(crawler.MetadataRecord{URL: "b"})

	again := c.Snapshot()
	assert.Equal(t, "a", again.Records[0].URL)
	assert.Len(t, snap.Records, 1)
	assert.Len(t, again.Records, 2)
}
