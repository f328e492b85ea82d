package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/krk-transit/delay-tracker/station"
)

var wantedFiles = map[string]bool{
	"trips.txt":  true,
	"routes.txt": true,
	"stops.txt":  true,
}

func (g *Index) load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return g.loadFromDir(path)
	}
	return g.loadFromZip(path)
}

func (g *Index) loadFromDir(dir string) error {
	for name := range wantedFiles {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		err = g.consumeCSV(name, f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Index) loadFromZip(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()
	for _, f := range zr.File {
		name := strings.ToLower(filepath.Base(f.Name))
		if !wantedFiles[name] {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return err
		}
		err = g.consumeCSV(name, r)
		_ = r.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *Index) consumeCSV(name string, r io.Reader) error {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	rec, err := csvr.ReadAll()
	if err != nil {
		return err
	}
	if len(rec) == 0 {
		return nil
	}
	head := rec[0]
	idx := func(col string) int {
		for i, h := range head {
			if strings.EqualFold(strings.TrimSpace(h), col) {
				return i
			}
		}
		return -1
	}
	field := func(row []string, i int) string {
		if i >= 0 && i < len(row) {
			return row[i]
		}
		return ""
	}
	switch name {
	case "trips.txt":
		tID := idx("trip_id")
		rID := idx("route_id")
		for _, row := range rec[1:] {
			if trip, route := field(row, tID), field(row, rID); trip != "" && route != "" {
				g.tripToRoute[trip] = route
			}
		}
	case "routes.txt":
		rID := idx("route_id")
		rSN := idx("route_short_name")
		for _, row := range rec[1:] {
			if route, short := field(row, rID), field(row, rSN); route != "" && short != "" {
				g.routeToLine[route] = short
			}
		}
	case "stops.txt":
		sID := idx("stop_id")
		sN := idx("stop_name")
		sLat := idx("stop_lat")
		sLon := idx("stop_lon")
		for _, row := range rec[1:] {
			id := field(row, sID)
			if id == "" {
				continue
			}
			lat, errLat := strconv.ParseFloat(field(row, sLat), 64)
			lon, errLon := strconv.ParseFloat(field(row, sLon), 64)
			if errLat != nil || errLon != nil {
				continue
			}
			g.stations = append(g.stations, station.Station{
				ID:        id,
				Name:      field(row, sN),
				Latitude:  lat,
				Longitude: lon,
			})
		}
	}
	return nil
}
