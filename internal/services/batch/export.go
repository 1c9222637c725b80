package batch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/nadungimhanalk/Gemini-Image/internal/models"
	"github.com/nadungimhanalk/Gemini-Image/pkg/utils"
)

const promptNameLength = 15

// ExportSuccessful zips the result of every done job.
func ExportSuccessful(jobs []models.Job) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	seen := make(map[string]int)
	count := 0
	for _, j := range jobs {
		if j.Status != models.StatusDone || j.Result == nil {
			continue
		}

		name := uniqueName(ArchiveFilename(j), seen)
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modifiedAt(j),
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := w.Write(j.Result.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
		count++
	}

	if count == 0 {
		return nil, models.ErrNoSuccessfulJobs
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveFilename builds "<position>_<prompt>.<ext>" where prompt is the
// first characters of the prompt reduced to [A-Za-z0-9_].
func ArchiveFilename(j models.Job) string {
	mime := ""
	if j.Result != nil {
		mime = j.Result.MIMEType
	}
	return fmt.Sprintf("%d_%s.%s", j.Index+1, sanitizePrompt(j.Prompt), utils.ExtensionForMIME(mime))
}

func sanitizePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > promptNameLength {
		runes = runes[:promptNameLength]
	}

	var b strings.Builder
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func uniqueName(name string, seen map[string]int) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		ext := ""
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
			name, ext = name[:dot], name[dot:]
		}
		return fmt.Sprintf("%s_%d%s", name, n, ext)
	}
	return name
}

func modifiedAt(j models.Job) time.Time {
	if j.FinishedAt != nil {
		return *j.FinishedAt
	}
	return time.Now()
}
