package sensorsdr

import (
	"sort"
	"strings"
)

// sensorTree is one topology snapshot: sensor paths sorted so that a
// sensor number is simply an index into the snapshot. The mapping is
// one to one within a snapshot; a new snapshot is built whenever the
// tree has been cleared by an add or remove notification.
type sensorTree struct {
	paths       []string
	connections map[string]string
}

func newSensorTree(byPath map[string]string) *sensorTree {
	t := &sensorTree{
		paths:       make([]string, 0, len(byPath)),
		connections: make(map[string]string, len(byPath)),
	}
	for path, connection := range byPath {
		t.paths = append(t.paths, path)
		t.connections[path] = connection
	}
	sort.Strings(t.paths)
	return t
}

func (t *sensorTree) size() int {
	if t == nil {
		return 0
	}
	return len(t.paths)
}

func (t *sensorTree) at(index int) (connection, path string, ok bool) {
	if t == nil || index < 0 || index >= len(t.paths) {
		return "", "", false
	}
	path = t.paths[index]
	return t.connections[path], path, true
}

func (t *sensorTree) lookup(number uint8) (connection, path string, ok bool) {
	return t.at(int(number))
}

func (t *sensorTree) pathForNumber(number uint8) string {
	_, path, _ := t.lookup(number)
	return path
}

// sensorNameFromPath derives the record display name: the trailing path
// segment with underscores replaced by spaces.
func sensorNameFromPath(path string) string {
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	return strings.ReplaceAll(name, "_", " ")
}

// sensorCategoryFromPath returns the sensor category segment, paths
// being laid out as .../sensors/<category>/<name>.
func sensorCategoryFromPath(path string) string {
	end := strings.LastIndex(path, "/")
	if end <= 0 {
		return ""
	}
	start := strings.LastIndex(path[:end], "/")
	return path[start+1 : end]
}
