package model

// Location is a geolocated client position used in presence packets.
type Location struct {
	Latitude  float32
	Longitude float32
}
