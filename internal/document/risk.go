package document

import (
	"bytes"
	"encoding/json"
	"strings"
)

// リスク加点とフラグ
const (
	missingExifPenalty = 20
	editedPenalty      = 30
	maxRiskScore       = 100

	FlagMissingExif        = "missing_exif"
	FlagEditedWithSoftware = "edited_with_software"
)

// knownEditors はEXIFのSoftwareタグに現れる画像編集ソフトの名前（小文字）。
var knownEditors = []string{
	"photoshop",
	"gimp",
	"lightroom",
	"pixelmator",
	"affinity",
	"paint.net",
	"canva",
	"snapseed",
	"picsart",
	"facetune",
}

// Assessment はEXIFメタデータに基づくリスク判定結果。
type Assessment struct {
	MissingExif bool
	Score       int
	Flags       []string
}

// Assess はEXIFメタデータからリスクスコアを算出する。
// exifが空・null・空オブジェクト・解析不能の場合はEXIF欠落として扱う。
func Assess(exif json.RawMessage) Assessment {
	a := Assessment{Flags: []string{}}

	tags, ok := parseExif(exif)
	if !ok {
		a.MissingExif = true
		a.Score += missingExifPenalty
		a.Flags = append(a.Flags, FlagMissingExif)
		return a
	}

	if software := softwareTag(tags); software != "" && isKnownEditor(software) {
		a.Score += editedPenalty
		a.Flags = append(a.Flags, FlagEditedWithSoftware)
	}

	if a.Score > maxRiskScore {
		a.Score = maxRiskScore
	}
	return a
}

func parseExif(exif json.RawMessage) (map[string]any, bool) {
	trimmed := bytes.TrimSpace(exif)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}

	var tags map[string]any
	if err := json.Unmarshal(trimmed, &tags); err != nil {
		return nil, false
	}
	if len(tags) == 0 {
		return nil, false
	}
	return tags, true
}

// softwareTag はキーの大文字小文字を区別せずにSoftwareタグを取り出す。
func softwareTag(tags map[string]any) string {
	for k, v := range tags {
		if strings.EqualFold(k, "software") {
			s, _ := v.(string)
			return s
		}
	}
	return ""
}

func isKnownEditor(software string) bool {
	lower := strings.ToLower(software)
	for _, editor := range knownEditors {
		if strings.Contains(lower, editor) {
			return true
		}
	}
	return false
}
