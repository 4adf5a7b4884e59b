package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Replay{},
	&ReplayBlob{},
	&MapBlocks{},
}

// Replay is the cached metadata of one replay plus what decoding learned
// about it. The raw buffer lives in ReplayBlob so listing stays cheap.
type Replay struct {
	ID          string                          `json:"_id" gorm:"primaryKey;size:64"`
	MapUID      string                          `json:"mapUId" gorm:"size:64;index:idx_replay_map"`
	PlayerName  string                          `json:"playerName" gorm:"size:127"`
	WebID       string                          `json:"webId" gorm:"size:127"`
	Color       datatypes.JSONType[ReplayColor] `json:"color"`
	Finished    bool                            `json:"raceFinished" gorm:"index:idx_replay_map"`
	EndRaceTime int32                           `json:"endRaceTime"`
	UploadedAt  time.Time                       `json:"date" gorm:"index"`
	ObjectPath  string                          `json:"objectPath" gorm:"size:255"`

	Layout      string          `json:"layout" gorm:"size:16"`
	SampleCount int             `json:"sampleCount"`
	Bounds      datatypes.JSON  `json:"bounds"`
	RacingLine  geom.LineString `json:"-" gorm:"type:geometry"`

	CachedAt  time.Time  `json:"cachedAt"`
	UpdatedAt time.Time  `json:"-"`
	Blob      ReplayBlob `json:"-" gorm:"foreignKey:ReplayID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (*Replay) TableName() string {
	return "replays"
}

// ReplayColor is the display color stored as a JSON column.
type ReplayColor struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// ReplayBlob holds the raw telemetry buffer of a replay.
type ReplayBlob struct {
	ReplayID string `gorm:"primaryKey;size:64"`
	Data     []byte
}

func (*ReplayBlob) TableName() string {
	return "replay_blobs"
}

// MapBlocks is the cached block list of one map.
type MapBlocks struct {
	MapUID    string                        `json:"mapUid" gorm:"primaryKey;size:64"`
	Blocks    datatypes.JSONSlice[MapBlock] `json:"blocks"`
	CachedAt  time.Time                     `json:"cachedAt"`
	UpdatedAt time.Time                     `json:"-"`
}

func (*MapBlocks) TableName() string {
	return "map_blocks"
}

// MapBlock is one element of the MapBlocks JSON column.
type MapBlock struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

// FindReplay loads the replay with the given id, including its blob.
// It returns gorm.ErrRecordNotFound when missing.
func FindReplay(db *gorm.DB, id string) (Replay, error) {
	var r Replay
	err := db.Preload("Blob").Where("id = ?", id).First(&r).Error
	return r, err
}
