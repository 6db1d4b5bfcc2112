package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/s3_client"
	"github.com/pkg/errors"
)

// Archive stores every event as a JSON object in S3, keyed by date and sensor.
type Archive struct {
	api    s3_client.PutObjectAPI
	bucket string
	prefix string
}

func NewArchive(api s3_client.PutObjectAPI, bucket, prefix string) *Archive {
	return &Archive{api: api, bucket: bucket, prefix: prefix}
}

func (a *Archive) Name() string { return "archive" }

// Key returns the object key for evt.
func (a *Archive) Key(evt Event) string {
	at := evt.At.UTC()
	return path.Join(
		a.prefix,
		at.Format("2006/01/02"),
		fmt.Sprintf("%s-%s-%d.json", evt.Sensor, evt.Kind, at.UnixNano()),
	)
}

func (a *Archive) Notify(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "failed to encode alert event")
	}
	return s3_client.PutBytes(ctx, a.api, a.bucket, a.Key(evt), constants.ContentTypeJSON, body)
}
