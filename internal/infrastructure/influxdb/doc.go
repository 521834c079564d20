// Package influxdb exports panel telemetry to InfluxDB v2.
//
// Sensor readings are written to the sensor_readings measurement tagged
// with device_id and sensor_type; door lock transitions and battery level
// go to door_lock tagged with device_id. The export is optional and
// best-effort: the panel's in-memory history stays the source of truth
// for the API.
package influxdb
