package model

import "github.com/google/uuid"

// ParseID はリクエストで受け取ったリソースIDをUUIDの正規形に変換する。
// UUIDとして解釈できないIDは存在しないIDと同じ扱いになるため、呼び出し側はNotFoundを返す。
func ParseID(raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
