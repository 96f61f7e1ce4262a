package stripe

import (
	"time"

	"gorm.io/datatypes"
)

func toJSONMap(metadata map[string]string) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0)
}
