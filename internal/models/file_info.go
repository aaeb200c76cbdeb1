package models

// DeviceType is the flight-controller family that wrote a model's logs.
type DeviceType string

const (
	DeviceHelicopter DeviceType = "HELICOPTER"
	DeviceAirplane   DeviceType = "AIRPLANE"
	DeviceMultirotor DeviceType = "MULTIROTOR"
	DeviceVBasic     DeviceType = "VBASIC"
)

// ValidDeviceTypes returns all known device types.
func ValidDeviceTypes() []DeviceType {
	return []DeviceType{DeviceHelicopter, DeviceAirplane, DeviceMultirotor, DeviceVBasic}
}

// IsValidDeviceType checks if a device type value is known.
func IsValidDeviceType(d DeviceType) bool {
	for _, valid := range ValidDeviceTypes() {
		if d == valid {
			return true
		}
	}
	return false
}

// ModelLogFileSet is one session's log bundle inside a model directory.
type ModelLogFileSet struct {
	Model        string     `json:"model"`
	Directory    string     `json:"directory"`
	Number       string     `json:"number"` // session sequence prefix of the filenames
	EventLog     string     `json:"eventLog"`
	DeviceType   DeviceType `json:"deviceType"`
	TelemetryLog string     `json:"telemetryLog,omitempty"`
	GpsLog       string     `json:"gpsLog,omitempty"`
}

// Key returns the identity of the file set.
func (f ModelLogFileSet) Key() string {
	return f.Model + "/" + f.Number
}

// BatteryLogFileSet is one battery's cumulative charger log.
type BatteryLogFileSet struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
	LogPath   string `json:"logPath"`
}
