package catalog

import (
	"database/sql"
	"time"

	"tubewatch/types"
)

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*types.Video, error) {
	var (
		v                                            types.Video
		url, thumb, desc, pubTime, pubAt, views, dur sql.NullString
		summary, transcript, location, format        sql.NullString
		downloaded, ignored, watchLater              int
	)
	if err := scanner.Scan(
		&v.ID, &v.ChannelName, &v.Title, &url, &thumb, &desc,
		&pubTime, &pubAt, &views, &dur, &downloaded, &ignored,
		&summary, &transcript, &location, &format, &v.AddedAt,
		&watchLater,
	); err != nil {
		return nil, err
	}

	v.URL = url.String
	v.Thumbnail = thumb.String
	v.Description = desc.String
	v.PublishedTime = pubTime.String
	v.ViewCount = views.String
	v.Duration = dur.String
	v.Summary = summary.String
	v.Transcript = transcript.String
	v.Location = location.String
	v.Format = format.String
	v.Downloaded = downloaded == 1
	v.Ignored = ignored == 1
	v.WatchLater = watchLater == 1
	if pubAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, pubAt.String); err == nil {
			v.PublishedAt = &t
		}
	}
	return &v, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
