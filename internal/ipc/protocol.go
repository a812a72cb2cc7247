package ipc

// Commands understood by the server.
const (
	CmdPing    = "ping"
	CmdStatus  = "status"
	CmdStop    = "stop"
	CmdReport  = "report"
	CmdRefresh = "refresh"
)

// Request is a JSON message sent from client to server.
type Request struct {
	Command string            `json:"command"`
	Args    map[string]string `json:"args,omitempty"`
}

// Response is a JSON message sent from server to client.
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// StatusData is returned by the "status" command.
type StatusData struct {
	Uptime      string `json:"uptime"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	Projects    int64  `json:"projects"`
	Tasks       int64  `json:"tasks"`
	Assignments int64  `json:"assignments"`
	Employees   int64  `json:"employees"`
	Teams       int64  `json:"teams"`
	Activity    int64  `json:"activity_logs"`

	LastImportID     string `json:"last_import_id,omitempty"`
	LastImportSource string `json:"last_import_source,omitempty"`
	LastImportAt     string `json:"last_import_at,omitempty"`

	SnapshotDir string `json:"snapshot_dir,omitempty"`
}

// RefreshData is returned by the "refresh" command.
type RefreshData struct {
	ImportID string `json:"import_id"`
	Source   string `json:"source"`
	Projects int64  `json:"projects"`
	Tasks    int64  `json:"tasks"`
}
