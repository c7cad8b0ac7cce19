// Package pkgfetcher downloads update artifacts, optionally verifying their
// detached OpenPGP signatures.
package pkgfetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/network"
)

// SignatureSuffix is appended to an artifact URL to locate its signature.
var SignatureSuffix = ".asc"

// Job is one artifact to download.
type Job struct {
	URL  string
	Dest string
}

// Fetcher downloads artifacts over HTTP.
type Fetcher struct {
	Client *http.Client
	// Workers bounds FetchPackages; values below 1 mean one worker.
	Workers int
	// Progress receives the progress bar; nil disables it.
	Progress io.Writer
	// Verifier checks detached signatures when set.
	Verifier *Verifier
}

// New returns a Fetcher using the secure download client.
func New(workers int) *Fetcher {
	return &Fetcher{Client: network.NewDownloadHTTPClient(), Workers: workers}
}

func (f *Fetcher) client() *http.Client {
	if f.Client == nil {
		f.Client = network.NewDownloadHTTPClient()
	}
	return f.Client
}

// Download fetches rawURL into dest. The file is written under a temporary
// name and renamed once complete (and verified), so dest never holds a
// partial artifact.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string) error {
	log := logger.Logger()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	partial := dest + ".part"
	if err := f.fetchTo(ctx, rawURL, partial); err != nil {
		os.Remove(partial)
		return err
	}

	if f.Verifier != nil {
		if err := f.verify(ctx, rawURL, partial); err != nil {
			os.Remove(partial)
			return err
		}
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return fmt.Errorf("moving %s into place: %w", dest, err)
	}
	log.Debugf("downloaded %s to %s", rawURL, dest)
	return nil
}

func (f *Fetcher) fetchTo(ctx context.Context, rawURL, dest string) error {
	resp, err := network.Get(ctx, f.client(), rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

func (f *Fetcher) verify(ctx context.Context, rawURL, file string) error {
	sigURL := rawURL + SignatureSuffix
	resp, err := network.Get(ctx, f.client(), sigURL)
	if err != nil {
		return fmt.Errorf("fetching signature: %w", err)
	}
	defer resp.Body.Close()

	signed, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", file, err)
	}
	defer signed.Close()

	if err := f.Verifier.Verify(signed, resp.Body); err != nil {
		return fmt.Errorf("verifying %s: %w", path.Base(rawURL), err)
	}
	return nil
}

// FetchPackages downloads jobs using a pool of workers and returns one error
// slot per job. It shows a single progress bar tracking files completed vs
// total.
func (f *Fetcher) FetchPackages(ctx context.Context, jobs []Job) []error {
	log := logger.Logger()

	errs := make([]error, len(jobs))
	if len(jobs) == 0 {
		return errs
	}

	workers := f.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var bar *progressbar.ProgressBar
	if f.Progress != nil {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}
	var barMu sync.Mutex

	queue := make(chan int, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				job := jobs[idx]
				if bar != nil {
					barMu.Lock()
					bar.Describe(fmt.Sprintf("downloading %s", path.Base(job.URL)))
					barMu.Unlock()
				}

				if err := ctx.Err(); err != nil {
					errs[idx] = err
				} else if err := f.Download(ctx, job.URL, job.Dest); err != nil {
					log.Errorf("downloading %s failed: %v", job.URL, err)
					errs[idx] = err
				}

				if bar != nil {
					barMu.Lock()
					_ = bar.Add(1)
					barMu.Unlock()
				}
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()

	if bar != nil {
		_ = bar.Finish()
	}
	return errs
}
