package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStatusSample records one device status observation.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Booleans are stored as 0/1 so Grafana can average them into uptime and
// door-open ratios.
func (c *Client) WriteStatusSample(mac, model string, online, doorOpen bool, keyCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"domophone_status",
		map[string]string{
			"mac":   mac,
			"model": model,
		},
		map[string]interface{}{
			"online":    boolToInt(online),
			"door_open": boolToInt(doorOpen),
			"key_count": keyCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteEventSample records one device event occurrence at the time the
// device reported it.
func (c *Client) WriteEventSample(mac, eventKind string, apartment int, at time.Time) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"count": 1,
	}
	if apartment > 0 {
		fields["apartment"] = apartment
	}

	point := write.NewPoint(
		"domophone_events",
		map[string]string{
			"mac":   mac,
			"event": eventKind,
		},
		fields,
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
