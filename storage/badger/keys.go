package badger

// Key prefixes for different data types
const (
	equipmentPrefix  = "equip:"
	checkpointPrefix = "chkpt:"
)

// makeEquipmentKey generates a key for an equipment record by ID.
func makeEquipmentKey(id string) []byte {
	return []byte(equipmentPrefix + id)
}

// makeCheckpointKey generates a key for a named batch checkpoint.
func makeCheckpointKey(name string) []byte {
	return []byte(checkpointPrefix + name)
}
