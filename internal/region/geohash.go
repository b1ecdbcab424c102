package region

// Minimal base32 geohash, only used to build cache keys.
var base32 = []byte("0123456789bcdefghjkmnpqrstuvwxyz")

// cacheKeyPrecision gives cells of a few centimetres, so cached answers are
// exact for repeated clicks on the same vertex without smearing borders.
const cacheKeyPrecision = 12

func encodeGeohash(lat, lng float64, precision int) string {
	latInt := [2]float64{-90, 90}
	lngInt := [2]float64{-180, 180}
	bits := [5]int{16, 8, 4, 2, 1}
	bit, ch := 0, 0
	even := true
	out := make([]byte, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lngInt[0] + lngInt[1]) / 2
			if lng >= mid {
				ch |= bits[bit]
				lngInt[0] = mid
			} else {
				lngInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if lat >= mid {
				ch |= bits[bit]
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out = append(out, base32[ch])
			bit, ch = 0, 0
		}
	}
	return string(out)
}
