package stats

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

const sessionIndexFile = "session_index.json"

const (
	sessionFile      = "session.json"
	topologiesFile   = "topologies.json"
	consistencyFile  = "consistency.json"
	consistencyCSV   = "consistency.csv"
	summaryFile      = "summary.json"
	definitionSource = "network.yaml"
)

var errSessionIDRequired = errors.New("session id is required")

type TopologyEntry struct {
	Index      int               `json:"index"`
	Topology   model.Topology    `json:"topology"`
	Components []model.Component `json:"components"`
}

type ConsistencyEntry struct {
	Index       int                  `json:"index"`
	Consistency model.ConsistencyMap `json:"consistency"`
}

type SessionSummary struct {
	SessionID  string `json:"session_id"`
	Topologies int    `json:"topologies"`
	Visited    int    `json:"visited"`
	Stopped    bool   `json:"stopped"`
}

type SessionArtifacts struct {
	Session model.Session          `json:"session"`
	Summary SessionSummary         `json:"summary"`
	Results []model.TopologyResult `json:"results"`
}

type SessionIndexEntry struct {
	SessionID     string `json:"session_id"`
	Components    int    `json:"components"`
	Definite      int    `json:"definite"`
	Optional      int    `json:"optional"`
	Experiments   int    `json:"experiments"`
	Topologies    int    `json:"topologies"`
	Visited       int    `json:"visited"`
	Stopped       bool   `json:"stopped"`
	Reference     string `json:"reference"`
	OptionalAware bool   `json:"optional_aware"`
	CreatedAtUTC  string `json:"created_at_utc"`
}

// IndexEntryFor summarizes a session for the session index.
func IndexEntryFor(session model.Session, summary SessionSummary) SessionIndexEntry {
	return SessionIndexEntry{
		SessionID:     session.ID,
		Components:    len(session.Components),
		Definite:      len(session.Definite),
		Optional:      len(session.Optional),
		Experiments:   len(session.Experiments),
		Topologies:    session.TopologyCount,
		Visited:       summary.Visited,
		Stopped:       summary.Stopped,
		Reference:     session.Reference,
		OptionalAware: session.OptionalAware,
		CreatedAtUTC:  session.CreatedAtUTC,
	}
}

func WriteSessionArtifacts(baseDir string, artifacts SessionArtifacts) (string, error) {
	if artifacts.Session.ID == "" {
		return "", errSessionIDRequired
	}

	sessionDir := filepath.Join(baseDir, artifacts.Session.ID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", err
	}

	topologies := make([]TopologyEntry, 0, len(artifacts.Results))
	consistency := make([]ConsistencyEntry, 0, len(artifacts.Results))
	for _, result := range artifacts.Results {
		topologies = append(topologies, TopologyEntry{Index: result.Index, Topology: result.Topology, Components: result.Components})
		consistency = append(consistency, ConsistencyEntry{Index: result.Index, Consistency: result.Consistency})
	}

	if err := writeJSON(filepath.Join(sessionDir, sessionFile), artifacts.Session); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(sessionDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(sessionDir, topologiesFile), topologies); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(sessionDir, consistencyFile), consistency); err != nil {
		return "", err
	}
	if err := WriteConsistencyCSV(sessionDir, consistency); err != nil {
		return "", err
	}

	return sessionDir, nil
}

// WriteDefinitionSource stores the network definition a session was built
// from next to its artifacts.
func WriteDefinitionSource(sessionDir string, data []byte) error {
	return os.WriteFile(filepath.Join(sessionDir, definitionSource), data, 0o644)
}

func AppendSessionIndex(baseDir string, entry SessionIndexEntry) error {
	if entry.SessionID == "" {
		return errSessionIDRequired
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListSessionIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].SessionID == entry.SessionID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, sessionIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, sessionIndexFile), index)
}

// ListSessionIndex returns the index newest first.
func ListSessionIndex(baseDir string) ([]SessionIndexEntry, error) {
	path := filepath.Join(baseDir, sessionIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []SessionIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "decode %s", sessionIndexFile)
	}

	type indexedEntry struct {
		entry SessionIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]SessionIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportSessionArtifacts(baseDir, sessionID, outDir string) (string, error) {
	if sessionID == "" {
		return "", errSessionIDRequired
	}

	src := filepath.Join(baseDir, sessionID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, sessionID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{sessionFile, summaryFile, topologiesFile, consistencyFile, consistencyCSV}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	sourcePath := filepath.Join(src, definitionSource)
	if _, err := os.Stat(sourcePath); err == nil {
		if err := copyFile(sourcePath, filepath.Join(dst, definitionSource)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadSession(baseDir, sessionID string) (model.Session, bool, error) {
	var session model.Session
	ok, err := readJSON(filepath.Join(baseDir, sessionID, sessionFile), &session)
	return session, ok, err
}

func ReadSummary(baseDir, sessionID string) (SessionSummary, bool, error) {
	var summary SessionSummary
	ok, err := readJSON(filepath.Join(baseDir, sessionID, summaryFile), &summary)
	return summary, ok, err
}

func ReadConsistency(baseDir, sessionID string) ([]ConsistencyEntry, bool, error) {
	var entries []ConsistencyEntry
	ok, err := readJSON(filepath.Join(baseDir, sessionID, consistencyFile), &entries)
	return entries, ok, err
}

func ReadTopologies(baseDir, sessionID string) ([]TopologyEntry, bool, error) {
	var entries []TopologyEntry
	ok, err := readJSON(filepath.Join(baseDir, sessionID, topologiesFile), &entries)
	return entries, ok, err
}

// ReadSessionArtifacts rebuilds what WriteSessionArtifacts stored for a
// session. Consistency is read from the CSV when the JSON file is missing.
// The bool is false when the session has no artifacts.
func ReadSessionArtifacts(baseDir, sessionID string) (SessionArtifacts, bool, error) {
	if sessionID == "" {
		return SessionArtifacts{}, false, errSessionIDRequired
	}
	session, ok, err := ReadSession(baseDir, sessionID)
	if err != nil || !ok {
		return SessionArtifacts{}, false, err
	}
	summary, _, err := ReadSummary(baseDir, sessionID)
	if err != nil {
		return SessionArtifacts{}, false, err
	}
	topologies, _, err := ReadTopologies(baseDir, sessionID)
	if err != nil {
		return SessionArtifacts{}, false, err
	}
	consistency, ok, err := ReadConsistency(baseDir, sessionID)
	if err != nil {
		return SessionArtifacts{}, false, err
	}
	if !ok {
		if consistency, _, err = ReadConsistencyCSV(baseDir, sessionID); err != nil {
			return SessionArtifacts{}, false, err
		}
	}

	byIndex := make(map[int]model.ConsistencyMap, len(consistency))
	for _, entry := range consistency {
		byIndex[entry.Index] = entry.Consistency
	}
	results := make([]model.TopologyResult, 0, len(topologies))
	for _, entry := range topologies {
		results = append(results, model.TopologyResult{
			VersionedRecord: session.VersionedRecord,
			SessionID:       session.ID,
			Index:           entry.Index,
			Topology:        entry.Topology,
			Components:      entry.Components,
			Consistency:     byIndex[entry.Index],
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	return SessionArtifacts{Session: session, Summary: summary, Results: results}, true, nil
}

// WriteConsistencyCSV flattens consistency maps into one row per
// (topology, key, rule) so that solvers can stream them.
func WriteConsistencyCSV(sessionDir string, entries []ConsistencyEntry) error {
	path := filepath.Join(sessionDir, consistencyCSV)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"topology", "key", "rule", "verdict"}); err != nil {
		return err
	}
	for _, entry := range entries {
		keys := make([]string, 0, len(entry.Consistency))
		for key := range entry.Consistency {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			verdicts := entry.Consistency[key]
			rules := make([]int, 0, len(verdicts))
			for rule := range verdicts {
				rules = append(rules, rule)
			}
			sort.Ints(rules)
			for _, rule := range rules {
				if err := writer.Write([]string{
					strconv.Itoa(entry.Index),
					key,
					strconv.Itoa(rule),
					verdicts[rule].String(),
				}); err != nil {
					return err
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadConsistencyCSV(baseDir, sessionID string) ([]ConsistencyEntry, bool, error) {
	path := filepath.Join(baseDir, sessionID, consistencyCSV)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []ConsistencyEntry{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 4 {
		return nil, false, errors.New("consistency csv header must have at least 4 columns")
	}

	entries := make([]ConsistencyEntry, 0, 16)
	byIndex := make(map[int]int)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 4 {
			return nil, false, errors.New("consistency csv row must have at least 4 columns")
		}
		index, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, errors.Wrapf(err, "topology index %q", record[0])
		}
		rule, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, false, errors.Wrapf(err, "rule %q", record[2])
		}
		var verdict model.Verdict
		if err := verdict.UnmarshalText([]byte(record[3])); err != nil {
			return nil, false, err
		}

		pos, ok := byIndex[index]
		if !ok {
			pos = len(entries)
			byIndex[index] = pos
			entries = append(entries, ConsistencyEntry{Index: index, Consistency: model.ConsistencyMap{}})
		}
		cm := entries[pos].Consistency
		if cm[record[1]] == nil {
			cm[record[1]] = map[int]model.Verdict{}
		}
		cm[record[1]][rule] = verdict
	}
	return entries, true, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, errors.Wrapf(err, "decode %s", filepath.Base(path))
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
