package vision

import (
	"image"
	"sort"

	"gocv.io/x/gocv"

	"plate-registry/internal/domain/plate"
)

const (
	CannyLowThreshold  = 170
	CannyHighThreshold = 200

	DefaultCandidateLimit = 10
	DefaultEpsilonRatio   = 0.02
)

// CandidateSelector ranks traced boundaries and picks at most one plate
// region. bounds is the image rectangle the region must fit in.
type CandidateSelector interface {
	Select(contours gocv.PointsVector, bounds image.Rectangle) (plate.Region, bool)
}

// FirstQuadSelector keeps the Limit largest contours by enclosed area and
// returns the bounding box of the first one whose polygon approximation
// (tolerance EpsilonRatio of the perimeter) has exactly four vertices.
//
// Contours with equal area keep the order produced by gocv.FindContours.
// That order is implementation-defined by OpenCV and may change between
// library versions.
type FirstQuadSelector struct {
	Limit        int
	EpsilonRatio float64
}

func NewFirstQuadSelector() FirstQuadSelector {
	return FirstQuadSelector{
		Limit:        DefaultCandidateLimit,
		EpsilonRatio: DefaultEpsilonRatio,
	}
}

func (s FirstQuadSelector) Select(contours gocv.PointsVector, bounds image.Rectangle) (plate.Region, bool) {
	n := contours.Size()
	if n == 0 {
		return plate.Region{}, false
	}

	areas := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		areas[i] = gocv.ContourArea(contours.At(i))
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return areas[order[a]] > areas[order[b]]
	})

	limit := s.Limit
	if limit <= 0 || limit > n {
		limit = n
	}

	for _, idx := range order[:limit] {
		contour := contours.At(idx)
		peri := gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, s.EpsilonRatio*peri, true)
		if approx.Size() != 4 {
			approx.Close()
			continue
		}

		rect := gocv.BoundingRect(approx).Intersect(bounds)
		approx.Close()

		// First quadrilateral wins, even when it is degenerate.
		if rect.Dx() <= 0 || rect.Dy() <= 0 {
			return plate.Region{}, false
		}
		return plate.RegionFromRect(rect, contour.ToPoints()), true
	}

	return plate.Region{}, false
}

type PlateLocator struct {
	lowThreshold  float32
	highThreshold float32
	selector      CandidateSelector
}

type LocatorOption func(*PlateLocator)

// WithSelector replaces the default first-quadrilateral strategy.
func WithSelector(s CandidateSelector) LocatorOption {
	return func(l *PlateLocator) {
		l.selector = s
	}
}

func NewPlateLocator(opts ...LocatorOption) *PlateLocator {
	l := &PlateLocator{
		lowThreshold:  CannyLowThreshold,
		highThreshold: CannyHighThreshold,
		selector:      NewFirstQuadSelector(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the region most likely to hold a plate. Any image the
// locator cannot work with yields false rather than an error.
func (l *PlateLocator) Locate(img gocv.Mat) (plate.Region, bool) {
	if img.Empty() {
		return plate.Region{}, false
	}

	gray, ok := Grayscale(img)
	if !ok {
		return plate.Region{}, false
	}
	defer gray.Close()

	return l.LocateGray(gray)
}

// LocateGray runs localization on an already single-channel image.
func (l *PlateLocator) LocateGray(gray gocv.Mat) (plate.Region, bool) {
	if gray.Empty() {
		return plate.Region{}, false
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, l.lowThreshold, l.highThreshold)

	contours := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	return l.selector.Select(contours, image.Rect(0, 0, gray.Cols(), gray.Rows()))
}

// Grayscale returns a new single-channel copy of img. The caller owns the
// returned Mat.
func Grayscale(img gocv.Mat) (gocv.Mat, bool) {
	gray := gocv.NewMat()
	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 3:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gray.Close()
		return gocv.Mat{}, false
	}
	return gray, true
}
