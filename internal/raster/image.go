package raster

// Image is an ordered set of equally-shaped bands produced from one catalog
// source. Band order follows the source's export order and is preserved
// through serialization so runs stay reproducible.
type Image struct {
	Bands []*Grid
}

// NewImage assembles an image from bands.
func NewImage(bands ...*Grid) *Image {
	return &Image{Bands: bands}
}

// Band returns the named band, or false when the image does not carry it.
func (im *Image) Band(name string) (*Grid, bool) {
	if im == nil {
		return nil, false
	}
	for _, b := range im.Bands {
		if b.Band == name {
			return b, true
		}
	}
	return nil, false
}

// BandNames returns the band names in export order.
func (im *Image) BandNames() []string {
	if im == nil {
		return nil
	}
	names := make([]string, 0, len(im.Bands))
	for _, b := range im.Bands {
		names = append(names, b.Band)
	}
	return names
}
