// Package main provides localization for the webmplay CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Play WebM video with the audio clock as master.": "音声クロックを基準にWebM動画を再生します。",

		// Commands
		"Show stream information of a WebM or MP4 file.":  "WebMまたはMP4ファイルのストリーム情報を表示",
		"Play a file headlessly against the audio clock.": "音声クロックに合わせてファイルをヘッドレス再生",
		"Render one frame of a file as an image.":         "ファイルの1フレームを画像として出力",
		"Generate a test pattern video.":                  "テストパターン動画を生成",
		"Show version information.":                       "バージョン情報を表示",
		"webmplay version %s":                             "webmplay バージョン %s",

		// Global flags
		"YAML configuration file.":              "YAML設定ファイル",
		"Log level (debug, info, warn, error).": "ログレベル（debug, info, warn, error）",
		"Suppress all log output.":              "全てのログ出力を抑制",
		"Input file.":                           "入力ファイル",
		"Decoder threads.":                      "デコーダのスレッド数",

		// Info flags
		"Print the information as JSON.": "情報をJSONで出力",
		"Include the frame index.":       "フレームインデックスを含める",

		// Play flags
		"Loop playback until interrupted.":                               "中断されるまでループ再生",
		"Output volume (0.0-1.0).":                                       "出力音量（0.0-1.0）",
		"Start position as a fraction of the stream (0.0-1.0).":          "開始位置（ストリームに対する割合 0.0-1.0）",
		"Stop after this much wall time (e.g. 10s).":                     "指定した実時間で停止（例: 10s）",
		"Play video only, driven by the wall clock.":                     "映像のみを実時間クロックで再生",
		"Write the mixed audio output to a raw float32 file.":            "音声出力をfloat32の生データファイルに書き出す",
		"Enable debug output.":                                           "デバッグ出力を有効化",
		"Directory for debug output.":                                    "デバッグ出力のディレクトリ",
		"Save every Nth published frame in debug output.":                "N フレームごとにデバッグ出力へ保存",
		"Output playback summary to file (Markdown, or JSON for .json).": "再生サマリーをファイルに出力（Markdown形式、.jsonならJSON形式）",

		// Snapshot flags
		"Output image path (.png or .jpg).":               "出力画像のパス（.png または .jpg）",
		"Frame number (overrides --position).":            "フレーム番号（--position を上書き）",
		"Position as a fraction of the stream (0.0-1.0).": "位置（ストリームに対する割合 0.0-1.0）",
		"Output width, keeping the aspect ratio.":         "出力幅（縦横比を維持）",
		"Do not draw the caption bar.":                    "キャプションバーを描画しない",
		"JPEG quality (1-100).":                           "JPEG品質（1-100）",
		"TrueType font for the caption.":                  "キャプション用のTrueTypeフォント",

		// Gen flags
		"Output file path (.webm or .mp4).":                  "出力ファイルパス（.webm または .mp4）",
		"Frame width.":                                       "フレームの幅",
		"Frame height.":                                      "フレームの高さ",
		"Frame rate.":                                        "フレームレート",
		"Duration in milliseconds.":                          "再生時間（ミリ秒）",
		"Quality preset (low, medium, high).":                "品質プリセット（low, medium, high）",
		"Keyframe interval in frames (0 = encoder default).": "キーフレーム間隔（フレーム数、0 = エンコーダの既定値）",
		"Text drawn on every frame.":                         "全フレームに描画するテキスト",
		"frames":                                             "フレーム",

		// Info output
		"File":        "ファイル",
		"Container":   "コンテナ",
		"Track":       "トラック",
		"Codec":       "コーデック",
		"Resolution":  "解像度",
		"Frame Rate":  "フレームレート",
		"Frame Count": "フレーム数",
		"Keyframes":   "キーフレーム数",
		"Duration":    "再生時間",
		"Audio":       "音声",
		"None":        "なし",

		// Summary content
		"Playback Summary":   "再生サマリー",
		"Generated":          "生成日時",
		"Generated by":       "生成元",
		"Item":               "項目",
		"Value":              "値",
		"Input":              "入力",
		"Session":            "セッション",
		"File Size":          "ファイルサイズ",
		"Video":              "映像",
		"Timing Source":      "タイミング情報源",
		"Sample Rate":        "サンプルレート",
		"Channels":           "チャンネル数",
		"Samples":            "サンプル数",
		"Playback":           "再生",
		"Result":             "結果",
		"Completed":          "完了",
		"Interrupted":        "中断",
		"Looping":            "ループ中",
		"Stopped":            "停止",
		"Clock":              "クロック",
		"Wall clock":         "実時間",
		"Wall Time":          "実経過時間",
		"Playback Time":      "再生クロック時間",
		"Last Frame":         "最終フレーム",
		"Frames Saved":       "保存フレーム数",
		"Quality":            "品質",
		"Update Cycles":      "更新サイクル数",
		"Frames Shown":       "表示フレーム数",
		"Missed Frames":      "取りこぼしフレーム数",
		"Over-budget Cycles": "予算超過サイクル数",
		"Decode Errors":      "デコードエラー数",
		"Seeks":              "シーク回数",
		"Decoder Resets":     "デコーダ再初期化回数",
		"Worst Update":       "最長更新時間",
		"Worst Decode":       "最長デコード時間",
		"Worst Fetch":        "最長取得時間",
	})
}
