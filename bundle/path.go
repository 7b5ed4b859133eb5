package bundle

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	yearLayout   = "2006"
	monthLayout  = "2006_01"
	dayLayout    = "2006_01_02"
	hourLayout   = "2006_01_02_15"
	minuteLayout = "2006_01_02_15_04"
	secondLayout = "2006_01_02_15_04_05"
)

// Directory levels above the bundle file, from the coarsest.
var dirLayouts = [...]string{yearLayout, monthLayout, dayLayout, hourLayout}

var nameLayouts = [...]string{yearLayout, monthLayout, dayLayout, hourLayout, minuteLayout, secondLayout}

// Location is where a capture is stored: the bundle file and the member name inside it.
type Location struct {
	BundlePath string
	EntryName  string
}

// LockPath is the marker that guards mutation of the bundle.
func (l Location) LockPath() string {
	return LockPath(l.BundlePath)
}

func LockPath(bundlePath string) string {
	return bundlePath + ".lock"
}

// Resolve maps a capture to its bundle path and entry name.
//
// Bundles nest one directory deeper per granularity level, down to the hour:
//
//	year   <output>/GC01_2019.jpg.zip
//	hour   <output>/2019/2019_05/2019_05_04/GC01_2019_05_04_10.jpg.zip
//	second <output>/2019/2019_05/2019_05_04/2019_05_04_10/GC01_2019_05_04_10_15_30.jpg.zip
//
// Entry names are always hour qualified regardless of g. No I/O is performed.
func Resolve(output, camera, fileName string, ts time.Time, format string, g Granularity) (Location, error) {
	if !g.valid() {
		return Location{}, fmt.Errorf("%w: %d", ErrUnsupportedGranularity, int(g))
	}

	depth := min(int(g), len(dirLayouts))
	elems := make([]string, 0, depth+2)
	elems = append(elems, output)
	for _, layout := range dirLayouts[:depth] {
		elems = append(elems, ts.Format(layout))
	}
	elems = append(elems, fmt.Sprintf("%s_%s.%s.zip", camera, ts.Format(nameLayouts[g]), NormalizeFormat(format)))

	return Location{
		BundlePath: filepath.Join(elems...),
		EntryName:  EntryName(camera, ts, fileName),
	}, nil
}

// EntryName is <camera>/<YYYY>/<YYYY_MM>/<YYYY_MM_DD>/<YYYY_MM_DD_HH>/<base name>,
// independent of where the source lives on disk.
func EntryName(camera string, ts time.Time, fileName string) string {
	return path.Join(
		camera,
		ts.Format(yearLayout),
		ts.Format(monthLayout),
		ts.Format(dayLayout),
		ts.Format(hourLayout),
		filepath.Base(fileName),
	)
}

// NormalizeFormat strips leading dots and lower cases a format extension.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(format), "."))
}

// AllowedExtensions returns the file extensions (lower case, no dot) accepted
// for a requested format. jpg and jpeg, tif and tiff, are interchangeable.
func AllowedExtensions(format string) mapset.Set[string] {
	f := NormalizeFormat(format)
	switch f {
	case "jpg", "jpeg":
		return mapset.NewSet("jpg", "jpeg")
	case "tif", "tiff":
		return mapset.NewSet("tif", "tiff")
	default:
		return mapset.NewSet(f)
	}
}
