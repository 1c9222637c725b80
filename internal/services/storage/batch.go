package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
)

const publishWorkers = 5

// PublishImages uploads files concurrently. On partial failure it returns
// the successful uploads along with an error listing the failed ones.
func (s *StorageService) PublishImages(ctx context.Context, files []models.UploadFile) ([]models.PublishedFile, error) {
	if len(files) == 0 {
		return []models.PublishedFile{}, nil
	}
	if s.sbClient == nil {
		return nil, ErrNotConfigured
	}

	urls := make([]string, len(files))
	errs := make([]error, len(files))

	numWorkers := min(publishWorkers, len(files))
	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				urls[i], errs[i] = s.Upload(ctx, imagePrefix, files[i].Data, files[i].Filename, files[i].ContentType)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	var failedUploads []string
	published := make([]models.PublishedFile, 0, len(files))

	for i, err := range errs {
		if err != nil {
			failedUploads = append(failedUploads, fmt.Sprintf("%s: %v", files[i].Filename, err))
			continue
		}
		published = append(published, models.PublishedFile{Name: files[i].Filename, URL: urls[i]})
	}

	if len(failedUploads) > 0 {
		return published, fmt.Errorf("failed to upload %d files: %s",
			len(failedUploads), strings.Join(failedUploads, "; "))
	}

	return published, nil
}
