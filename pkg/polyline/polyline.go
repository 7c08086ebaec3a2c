// Package polyline encodes route geometries with Google's polyline algorithm.
// The algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultPrecision is the number of decimal places kept by Encode (the Google/ORS format).
const DefaultPrecision = 5

// Decode decodes a polyline-encoded string into a line string.
// Points are returned in orb order ([lng, lat]).
func Decode(encoded string) orb.LineString {
	return DecodePrecision(encoded, DefaultPrecision)
}

// DecodePrecision decodes a polyline that was encoded with the given precision.
func DecodePrecision(encoded string, precision int) orb.LineString {
	if encoded == "" {
		return nil
	}

	factor := math.Pow10(precision)
	var ls orb.LineString
	index := 0
	lat := 0
	lng := 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lngDelta, next := decodeValue(encoded, index)
		index = next
		lng += lngDelta

		ls = append(ls, orb.Point{float64(lng) / factor, float64(lat) / factor})
	}

	return ls
}

// decodeValue decodes one delta starting at index and returns it with the next index.
func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes a line string using DefaultPrecision.
func Encode(ls orb.LineString) string {
	return EncodePrecision(ls, DefaultPrecision)
}

// EncodePrecision encodes a line string keeping the given number of decimal places.
// Latitude is written before longitude, as the format requires.
func EncodePrecision(ls orb.LineString, precision int) string {
	if len(ls) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	encoded := make([]byte, 0, len(ls)*4)
	prevLat := 0
	prevLng := 0

	for _, p := range ls {
		lat := int(math.Round(p.Lat() * factor))
		lng := int(math.Round(p.Lon() * factor))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lng-prevLng)

		prevLat = lat
		prevLng = lng
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
