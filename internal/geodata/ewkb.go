package geodata

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodePointEWKB encodes a lon/lat coordinate as EWKB bytes with SRID
// 4326, suitable for a PostGIS geometry column.
func EncodePointEWKB(lon, lat float64) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geodata: encode point EWKB")
	}
	return data, nil
}

// DecodePointEWKB decodes EWKB bytes back into a lon/lat coordinate.
func DecodePointEWKB(data []byte) (lon, lat float64, err error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geodata: decode EWKB")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("geodata: expected point geometry, got %T", g)
	}
	return pt.X(), pt.Y(), nil
}
