package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/Skryldev/image-server/errors"
	"github.com/Skryldev/image-server/utils"
)

// Remote fetches source images over HTTP(S).
type Remote struct {
	client   *http.Client
	maxBytes int64
}

// NewRemote creates a Remote source.  timeout bounds the whole fetch
// (0 = none); maxBytes bounds the response body (0 = unlimited).
func NewRemote(timeout time.Duration, maxBytes int64) *Remote {
	return &Remote{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

func (r *Remote) Fetch(ctx context.Context, location string) ([]byte, error) {
	const op = "remote.fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategorySource, op, err)
	}

	res, err := r.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", location).Msg("remote fetch failed")
		return nil, apperrors.Wrap(apperrors.CategorySource, op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on fetch: %d", res.StatusCode)
		log.Error().Err(err).Str("url", location).Send()
		return nil, apperrors.New(apperrors.CategorySource, op, err)
	}

	body := res.Body
	reader := &utils.LimitedReader{R: body, Max: r.maxBytes}
	buf, err := utils.DrainReader(ctx, reader, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategorySource, op, err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	log.Debug().Str("url", location).Int("bytes", len(data)).Msg("remote fetch complete")
	return data, nil
}
