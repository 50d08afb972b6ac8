package timeline

import (
	"errors"
	"fmt"
)

// Messages are shown to the user as they are.
var (
	ErrUnauthenticated = errors.New("認証が必要です")
	ErrNotFound        = errors.New("タイムラインが見つかりません")
	ErrForbidden       = errors.New("このタイムラインを削除する権限がありません")
	ErrProfile         = errors.New("プロフィールの作成に失敗しました")
	ErrCreate          = errors.New("タイムラインの作成に失敗しました")
)

const (
	StageEvents = "events"
	StageItems  = "items"
)

// PartialSaveError reports that the timeline row was committed but some of
// its children were not. Nothing is rolled back.
type PartialSaveError struct {
	Stage string
	Err   error
}

func (e *PartialSaveError) Error() string {
	switch e.Stage {
	case StageItems:
		return fmt.Sprintf("アイテムの作成に失敗しました: %v", e.Err)
	default:
		return fmt.Sprintf("イベントの作成に失敗しました: %v", e.Err)
	}
}

func (e *PartialSaveError) Unwrap() error { return e.Err }
