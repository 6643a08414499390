// Package ingest consumes the two external feed formats the routing core
// builds from: a GTFS-style schedule directory and a binary street-network
// stream. Parsing details live here so graph assembly never touches a file
// handle.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chingiztob/cascade/internal/coreerr"
)

// ScheduleStop is a boarding location as read from stops.txt.
type ScheduleStop struct {
	StopID string
	Lon    float64
	Lat    float64
}

// ScheduleStopTime is one row of stop_times.txt surviving the weekday and
// departure-window filter, still attached to its trip and route.
type ScheduleStopTime struct {
	StopID               string
	Sequence             int
	Arrival              uint32
	Departure            uint32
	WheelchairAccessible bool
}

// ScheduleTrip groups the stop-time rows of one trip_id, sorted by
// stop_sequence, alongside the route it runs on.
type ScheduleTrip struct {
	TripID    string
	RouteID   string
	StopTimes []ScheduleStopTime
}

// ScheduleData is the ingestion adapter's output: everything graph assembly
// needs from a schedule feed, already filtered to the requested weekday and
// [departure, departure+duration) window.
type ScheduleData struct {
	Stops []ScheduleStop
	Trips []ScheduleTrip
}

var requiredScheduleFiles = []string{"stops.txt", "stop_times.txt", "trips.txt", "calendar.txt"}

// LoadSchedule validates and parses a GTFS-style schedule directory,
// filtering trips to the given weekday and stop-times to the half-open
// window [departure, departure+duration).
func LoadSchedule(dir string, departure, duration uint32, weekday string) (*ScheduleData, error) {
	for _, f := range requiredScheduleFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return nil, coreerr.New(coreerr.InvalidData, "missing required schedule file %q in %s", f, dir)
		}
	}

	stops, err := parseStops(filepath.Join(dir, "stops.txt"))
	if err != nil {
		return nil, err
	}

	services, err := parseCalendar(filepath.Join(dir, "calendar.txt"), weekday)
	if err != nil {
		return nil, err
	}

	trips, err := parseTrips(filepath.Join(dir, "trips.txt"), services)
	if err != nil {
		return nil, err
	}

	if err := attachStopTimes(filepath.Join(dir, "stop_times.txt"), trips); err != nil {
		return nil, err
	}

	windowEnd := departure + duration
	for i := range trips {
		filtered := trips[i].StopTimes[:0]
		for _, st := range trips[i].StopTimes {
			if st.Departure >= departure && st.Departure < windowEnd {
				filtered = append(filtered, st)
			}
		}
		trips[i].StopTimes = filtered
	}

	return &ScheduleData{Stops: stops, Trips: trips}, nil
}

func parseStops(path string) ([]ScheduleStop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoError, err, "opening stops.txt")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidData, err, "reading stops.txt header")
	}
	col := columnMap(header)
	for _, required := range []string{"stop_id", "stop_lon", "stop_lat"} {
		if _, ok := col[required]; !ok {
			return nil, coreerr.New(coreerr.MissingColumn, "stops.txt missing column %q", required)
		}
	}

	var out []ScheduleStop
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("ingest: skipping malformed stops.txt row: %v", err)
			continue
		}

		id := field(rec, col, "stop_id")
		if id == "" {
			continue
		}
		lon, err1 := strconv.ParseFloat(field(rec, col, "stop_lon"), 64)
		lat, err2 := strconv.ParseFloat(field(rec, col, "stop_lat"), 64)
		if err1 != nil || err2 != nil {
			log.Printf("ingest: skipping stop %s with unparseable coordinates", id)
			continue
		}
		out = append(out, ScheduleStop{StopID: id, Lon: lon, Lat: lat})
	}
	return out, nil
}

// parseCalendar returns the set of service_ids active on the requested
// weekday.
func parseCalendar(path, weekday string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoError, err, "opening calendar.txt")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidData, err, "reading calendar.txt header")
	}
	col := columnMap(header)
	if _, ok := col["service_id"]; !ok {
		return nil, coreerr.New(coreerr.MissingColumn, "calendar.txt missing column %q", "service_id")
	}
	weekdayCol := strings.ToLower(weekday)
	if _, ok := col[weekdayCol]; !ok {
		return nil, coreerr.New(coreerr.MissingColumn, "calendar.txt missing weekday column %q", weekdayCol)
	}

	active := make(map[string]bool)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("ingest: skipping malformed calendar.txt row: %v", err)
			continue
		}
		serviceID := field(rec, col, "service_id")
		if field(rec, col, weekdayCol) == "1" {
			active[serviceID] = true
		}
	}
	return active, nil
}

func parseTrips(path string, activeServices map[string]bool) ([]ScheduleTrip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IoError, err, "opening trips.txt")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, coreerr.Wrap(coreerr.InvalidData, err, "reading trips.txt header")
	}
	col := columnMap(header)
	for _, required := range []string{"trip_id", "route_id", "service_id"} {
		if _, ok := col[required]; !ok {
			return nil, coreerr.New(coreerr.MissingColumn, "trips.txt missing column %q", required)
		}
	}

	var trips []ScheduleTrip
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("ingest: skipping malformed trips.txt row: %v", err)
			continue
		}
		tripID := field(rec, col, "trip_id")
		routeID := field(rec, col, "route_id")
		serviceID := field(rec, col, "service_id")
		if tripID == "" || routeID == "" || !activeServices[serviceID] {
			continue
		}
		trips = append(trips, ScheduleTrip{TripID: tripID, RouteID: routeID})
	}
	return trips, nil
}

func attachStopTimes(path string, trips []ScheduleTrip) error {
	byTrip := make(map[string]int, len(trips))
	for i, t := range trips {
		byTrip[t.TripID] = i
	}

	f, err := os.Open(path)
	if err != nil {
		return coreerr.Wrap(coreerr.IoError, err, "opening stop_times.txt")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return coreerr.Wrap(coreerr.InvalidData, err, "reading stop_times.txt header")
	}
	col := columnMap(header)
	for _, required := range []string{"trip_id", "stop_id", "stop_sequence", "arrival_time", "departure_time"} {
		if _, ok := col[required]; !ok {
			return coreerr.New(coreerr.MissingColumn, "stop_times.txt missing column %q", required)
		}
	}
	_, hasWheelchair := col["wheelchair_accessible"]

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("ingest: skipping malformed stop_times.txt row: %v", err)
			continue
		}

		idx, ok := byTrip[field(rec, col, "trip_id")]
		if !ok {
			continue // trip filtered out by weekday
		}

		seq, err := strconv.Atoi(field(rec, col, "stop_sequence"))
		if err != nil {
			log.Printf("ingest: skipping stop_time with bad stop_sequence: %v", err)
			continue
		}

		arrival, err := parseHHMMSS(field(rec, col, "arrival_time"))
		if err != nil {
			log.Printf("ingest: skipping stop_time with bad arrival_time: %v", err)
			continue
		}
		departure, err := parseHHMMSS(field(rec, col, "departure_time"))
		if err != nil {
			log.Printf("ingest: skipping stop_time with bad departure_time: %v", err)
			continue
		}

		wheelchair := true
		if hasWheelchair {
			wheelchair = field(rec, col, "wheelchair_accessible") != "2"
		}

		trips[idx].StopTimes = append(trips[idx].StopTimes, ScheduleStopTime{
			StopID:               field(rec, col, "stop_id"),
			Sequence:             seq,
			Arrival:              arrival,
			Departure:            departure,
			WheelchairAccessible: wheelchair,
		})
	}

	for i := range trips {
		st := trips[i].StopTimes
		for a := 1; a < len(st); a++ {
			for b := a; b > 0 && st[b-1].Sequence > st[b].Sequence; b-- {
				st[b-1], st[b] = st[b], st[b-1]
			}
		}
	}

	return nil
}

// parseHHMMSS converts a GTFS "HH:MM:SS" timestamp to seconds since day
// origin. Hours greater than 23 are permitted (post-midnight service).
func parseHHMMSS(s string) (uint32, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	return uint32(h*3600 + m*60 + sec), nil
}

func columnMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, c := range header {
		m[strings.TrimSpace(c)] = i
	}
	return m
}

func field(rec []string, col map[string]int, name string) string {
	if idx, ok := col[name]; ok && idx < len(rec) {
		return strings.TrimSpace(rec[idx])
	}
	return ""
}
