package models

// ConsistencyReport is the result of a read-only comparison between the
// filenames the database expects on a device and the filenames actually
// found there. It never reflects any correction.
type ConsistencyReport struct {
	FilesFound          int      `json:"files_found"`           // count from the device scan
	DatabaseEpisodes    int      `json:"database_episodes"`     // count of expected filenames
	MissingFromDevice   []string `json:"missing_from_device"`   // expected but not scanned
	MissingFromDatabase []string `json:"missing_from_database"` // scanned but not expected
	IsConsistent        bool     `json:"is_consistent"`
}

// DeviceSyncReport summarizes one sync pass over a device. IsConsistent
// describes the device state found at scan time, independent of the
// corrections the sync itself wrote.
type DeviceSyncReport struct {
	ProcessedFiles  int   `json:"processed_files"`  // device files examined
	UpdatedEpisodes int   `json:"updated_episodes"` // on-device flags cleared
	SyncDurationMs  int64 `json:"sync_duration_ms"`
	IsConsistent    bool  `json:"is_consistent"`
}
