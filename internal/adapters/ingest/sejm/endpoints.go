package sejm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	perr "sejmcollect/internal/platform/errors"

	"github.com/tidwall/gjson"
)

// ProceedingsPath lists the sittings of a term
func ProceedingsPath(term int) string { return fmt.Sprintf("/sejm/term%d/proceedings", term) }

// TranscriptsPath lists the statements of one sitting day
func TranscriptsPath(term, num int, date string) string {
	return fmt.Sprintf("/sejm/term%d/proceedings/%d/%s/transcripts", term, num, date)
}

// TranscriptPath addresses the HTML body of one statement
func TranscriptPath(term, num int, date string, statement int) string {
	return fmt.Sprintf("%s/%d", TranscriptsPath(term, num, date), statement)
}

// MembersPath lists the MPs of a term
func MembersPath(term int) string { return fmt.Sprintf("/sejm/term%d/MP", term) }

// Proceedings fetches the sittings of a term in API order
func (c *Client) Proceedings(ctx context.Context, term int) ([]Proceeding, error) {
	var out []Proceeding
	if err := c.fetchInto(ctx, ProceedingsPath(term), "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ErrNoTranscript marks a sitting day whose response carries no "statements" key yet.
// The API answers such days with an empty object until the transcript is published
var ErrNoTranscript = errors.New("transcript not published")

// Transcripts fetches the statement list of one sitting day from the {"statements":[...]} envelope.
// A day without the envelope yields ErrNoTranscript; {"statements":[]} is an empty day
func (c *Client) Transcripts(ctx context.Context, term, num int, date string) ([]TranscriptEntry, error) {
	var out []TranscriptEntry
	if err := c.fetchInto(ctx, TranscriptsPath(term, num, date), "statements", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transcript fetches one statement body and reduces it to plain text
func (c *Client) Transcript(ctx context.Context, term, num int, date string, statement int) (string, error) {
	body, err := c.FetchText(ctx, TranscriptPath(term, num, date, statement), nil)
	if err != nil {
		return "", err
	}
	return ExtractText(body)
}

// Members fetches the MPs of a term
func (c *Client) Members(ctx context.Context, term int) ([]Member, error) {
	var out []Member
	if err := c.fetchInto(ctx, MembersPath(term), "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fetchInto decodes the body, or the value at path when set, into dst
func (c *Client) fetchInto(ctx context.Context, endpoint, path string, dst any) error {
	body, err := c.Fetch(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	raw := body
	if path != "" {
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			return fmt.Errorf("sejm %s: %w", endpoint, ErrNoTranscript)
		}
		if !res.IsArray() {
			return perr.JSONErrf("sejm %s: %q is not an array", endpoint, path)
		}
		raw = []byte(res.Raw)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "sejm %s: decode", endpoint)
	}
	return nil
}
