package model

// 设备类型
const (
	MachineTypeEquipment    = "equipment"
	MachineTypeInstallation = "installation"
)

// Machine 设备表，对应 machines
type Machine struct {
	MachineID        string    `gorm:"type:varchar(50);primaryKey"              json:"machine_id"`
	Name             string    `gorm:"type:varchar(200);not null"               json:"name"`
	Location         string    `gorm:"type:varchar(200)"                        json:"location"`
	Type             string    `gorm:"type:varchar(20);not null;default:'equipment'" json:"type"` // equipment | installation
	Schedule         *Schedule `gorm:"type:jsonb"                               json:"schedule,omitempty"`
	ScheduleDisabled bool      `gorm:"not null;default:false"                   json:"schedule_disabled"`
	BaseModel
}

// TableName 指定表名
func (Machine) TableName() string { return "machines" }
