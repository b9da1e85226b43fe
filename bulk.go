package mailer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// maxBulkErrors caps how many per-recipient error messages a bulk result
// carries back to the caller.
const maxBulkErrors = 10

// Recipient is one destination of a bulk send, with its per-recipient
// render context.
type Recipient struct {
	Email string                 `json:"email"`
	Data  map[string]interface{} `json:"data"`
}

// BulkResult is the aggregate outcome of a bulk send. Every attempt still
// produces its own log entry; Errors holds at most maxBulkErrors messages.
type BulkResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// SendBulk sends one template to many recipients through a bounded worker
// pool. Per-recipient failures are counted and reported in aggregate; they
// do not stop the remaining sends.
func (a *application) SendBulk(ctx context.Context, templateID string, recipients []Recipient) (BulkResult, error) {
	if templateID == "" {
		return BulkResult{}, MissingTemplateErr
	}

	if len(recipients) == 0 {
		return BulkResult{}, MissingRecipientErr
	}

	workers := a.bulkWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(recipients) {
		workers = len(recipients)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result BulkResult
	)

	jobs := make(chan Recipient)

	record := func(email string, res SendResult) {
		mu.Lock()
		defer mu.Unlock()

		if res.Success {
			result.Sent++
			return
		}

		result.Failed++
		if len(result.Errors) < maxBulkErrors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", email, res.Error))
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for recipient := range jobs {
				if recipient.Email == "" {
					record(recipient.Email, SendResult{Error: MissingRecipientErr.Error()})
					continue
				}

				if a.limiter != nil {
					if err := a.limiter.Wait(ctx); err != nil {
						record(recipient.Email, SendResult{Error: err.Error()})
						continue
					}
				}

				record(recipient.Email, a.sendOne(ctx, templateID, recipient.Email, recipient.Data, sendOptions{
					SentBy: SentByAdmin,
				}))
			}
		}()
	}

	for _, recipient := range recipients {
		jobs <- recipient
	}
	close(jobs)

	wg.Wait()

	return result, nil
}

// ParseRecipients reads bulk recipients from a CSV. The header row must
// contain an "Email" column (case-insensitive); every other column becomes a
// render context field keyed by its header. maxRows bounds how many data
// rows are read; values <= 0 fall back to 1000.
func ParseRecipients(r io.Reader, maxRows int) ([]Recipient, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read csv header row")
	}

	emailIdx := -1
	normalized := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		normalized[i] = header
		if strings.EqualFold(header, "email") {
			emailIdx = i
		}
	}

	if emailIdx == -1 {
		return nil, errors.New("The csv must contain an Email column")
	}

	if maxRows <= 0 {
		maxRows = 1000
	}

	recipients := make([]Recipient, 0)
	for len(recipients) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Failed to read csv row")
		}

		if len(record) != len(headers) {
			// skip malformed row
			continue
		}

		email := strings.TrimSpace(record[emailIdx])
		if email == "" {
			continue
		}

		data := make(map[string]interface{}, len(headers)-1)
		for i := range record {
			if i == emailIdx || normalized[i] == "" {
				continue
			}

			data[normalized[i]] = strings.TrimSpace(record[i])
		}

		recipients = append(recipients, Recipient{
			Email: email,
			Data:  data,
		})
	}

	if len(recipients) == 0 {
		return nil, errors.New("The csv must contain at least one data row")
	}

	return recipients, nil
}
