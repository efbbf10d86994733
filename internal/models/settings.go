package models

// SystemSetting represents a system-wide preference. Autoscaler policy keys
// override the env defaults and are snapshotted at the start of each sweep,
// never mid-sweep.
type SystemSetting struct {
	ID        uint   `gorm:"column:id;primaryKey" json:"id"`
	Key       string `gorm:"column:key;size:100;uniqueIndex;not null" json:"key"`
	Value     string `gorm:"column:value;type:text" json:"value"`
	ValueType string `gorm:"column:value_type;size:20;default:string" json:"value_type"` // string, int, float, bool
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
