package model

// Posts, mood entries and media assets are keyed on the wire as "_id", the
// name the admin and mobile clients address them by.  Users keep "id".

// Media asset kinds.  Each kind owns a sub-directory of the upload tree.
const (
    KindMusic    = "music"
    KindExercise = "exercise_videos"
)

// Music is an uploaded audio track.  FilePath holds the stored filename
// (asset id plus original extension) relative to the music directory;
// FileURL is filled in by handlers for clients.
type Music struct {
    ID        string    `json:"_id"`
    MusicName string    `json:"music_name"`
    Author    string    `json:"author"`
    Category  string    `json:"category"`
    FilePath  string    `json:"file_path"`
    FileURL   string    `json:"file_url,omitempty"`
    CreatedAt Timestamp `json:"created_at"`
}

// MusicUpdate carries the optional fields of a music metadata patch.
type MusicUpdate struct {
    MusicName *string
    Author    *string
    Category  *string
}

// Empty reports whether the patch sets no field.
func (u MusicUpdate) Empty() bool {
    return u.MusicName == nil && u.Author == nil && u.Category == nil
}

// Exercise is an uploaded exercise video with its instructions.
type Exercise struct {
    ID           string    `json:"_id"`
    ExerciseName string    `json:"exercise_name"`
    Category     string    `json:"category"`
    Duration     string    `json:"duration"`
    Difficulty   string    `json:"difficulty"`
    Description  string    `json:"description"`
    Instructions []string  `json:"instructions"`
    FilePath     string    `json:"file_path"`
    VideoURL     string    `json:"video_url,omitempty"`
    CreatedAt    Timestamp `json:"created_at"`
}

// ExerciseUpdate carries the optional fields of an exercise metadata patch.
type ExerciseUpdate struct {
    ExerciseName *string
    Category     *string
    Duration     *string
    Difficulty   *string
    Description  *string
    Instructions *[]string
}

func (u ExerciseUpdate) Empty() bool {
    return u.ExerciseName == nil && u.Category == nil && u.Duration == nil &&
        u.Difficulty == nil && u.Description == nil && u.Instructions == nil
}
