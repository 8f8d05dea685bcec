/*
Package export implements the human-portable backup format.

PURPOSE:
  Operators move their data between machines as a single file. The format
  is a CSV whose rows carry one entity each, with the entity itself as an
  embedded JSON column - spreadsheet-openable for a quick look, lossless
  for restore. Import also accepts the legacy format: the whole snapshot
  document wrapped in base64.

LAYOUT:
  section,id,data
  meta,schemaVersion,2
  student,<id>,{...student json...}
  coach,<id>,{...}
  series,<id>,{...}
  visit,<id>,{...}
  override,<occurrence key>,true|false
  config,-,{...}

Restore re-ingests through core.DecodeState, so even a legacy v1 base64
backup comes back upgraded.
*/
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bigtop/studio-engine/core"
)

const headerSection = "section"

// =============================================================================
// EXPORT
// =============================================================================

// Backup renders the snapshot as the CSV hybrid format.
func Backup(st core.State) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	write := func(section, id string, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return w.Write([]string{section, id, string(data)})
	}

	if err := w.Write([]string{headerSection, "id", "data"}); err != nil {
		return nil, err
	}
	if err := w.Write([]string{"meta", "schemaVersion", strconv.Itoa(st.SchemaVersion)}); err != nil {
		return nil, err
	}
	for _, s := range st.Students {
		if err := write("student", string(s.ID), s); err != nil {
			return nil, err
		}
	}
	for _, c := range st.Coaches {
		if err := write("coach", string(c.ID), c); err != nil {
			return nil, err
		}
	}
	for _, cs := range st.Series {
		if err := write("series", string(cs.ID), cs); err != nil {
			return nil, err
		}
	}
	for _, v := range st.Visits {
		if err := write("visit", string(v.ID), v); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(st.Overlay))
	for k := range st.Overlay {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.Write([]string{"override", k, strconv.FormatBool(st.Overlay[core.OccurrenceKey(k)])}); err != nil {
			return nil, err
		}
	}
	if err := write("config", "-", st.Config); err != nil {
		return nil, err
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// =============================================================================
// IMPORT
// =============================================================================

// Restore parses a backup in either supported format and returns the
// ingested, current-schema snapshot.
func Restore(raw []byte) (core.State, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return core.State{}, fmt.Errorf("empty backup")
	}
	if bytes.HasPrefix(trimmed, []byte(headerSection+",")) {
		return restoreCSV(trimmed)
	}
	return restoreLegacy(trimmed)
}

func restoreCSV(raw []byte) (core.State, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = 3
	rows, err := r.ReadAll()
	if err != nil {
		return core.State{}, fmt.Errorf("backup csv: %w", err)
	}

	st := core.NewState()
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		section, id, data := row[0], row[1], row[2]
		switch section {
		case "meta":
			// schemaVersion is informative; rows are already current-shape.
		case "student":
			var s core.Student
			if err := json.Unmarshal([]byte(data), &s); err != nil {
				return core.State{}, fmt.Errorf("backup row %d (student %s): %w", i, id, err)
			}
			st.Students = append(st.Students, s)
		case "coach":
			var c core.Coach
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				return core.State{}, fmt.Errorf("backup row %d (coach %s): %w", i, id, err)
			}
			st.Coaches = append(st.Coaches, c)
		case "series":
			var cs core.ClassSeries
			if err := json.Unmarshal([]byte(data), &cs); err != nil {
				return core.State{}, fmt.Errorf("backup row %d (series %s): %w", i, id, err)
			}
			st.Series = append(st.Series, cs)
		case "visit":
			var v core.Visit
			if err := json.Unmarshal([]byte(data), &v); err != nil {
				return core.State{}, fmt.Errorf("backup row %d (visit %s): %w", i, id, err)
			}
			st.Visits = append(st.Visits, v)
		case "override":
			st.Overlay = st.Overlay.SetCancelled(core.OccurrenceKey(id), data == "true")
		case "config":
			if err := json.Unmarshal([]byte(data), &st.Config); err != nil {
				return core.State{}, fmt.Errorf("backup row %d (config): %w", i, err)
			}
		default:
			return core.State{}, fmt.Errorf("backup row %d: unknown section %q", i, section)
		}
	}

	// Round-trip through the codec for normalization.
	doc, err := core.EncodeState(st)
	if err != nil {
		return core.State{}, err
	}
	return core.DecodeState(doc)
}

// restoreLegacy handles the old backup: base64 of the raw snapshot JSON.
func restoreLegacy(raw []byte) (core.State, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return core.State{}, fmt.Errorf("backup is neither csv nor base64: %w", err)
	}
	return core.DecodeState(decoded)
}
