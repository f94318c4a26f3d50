package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Command level messages
		"Loaded config from %s":         "%s から設定を読み込みました",
		"Debug output enabled: %s":      "デバッグ出力を有効化: %s",
		"Audio capture enabled: %s":     "音声キャプチャを有効化: %s",
		"Output saved to %s":            "出力を %s に保存しました",
		"Snapshot saved to %s":          "スナップショットを %s に保存しました",
		"Report saved to %s":            "レポートを %s に保存しました",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Runner
		"Opening %s":                     "%s を開いています",
		"Detected %s container":          "%s コンテナを検出しました",
		"Playback started":               "再生を開始しました",
		"Frame %d/%d at %.1fs":           "フレーム %d/%d (%.1f秒)",
		"Playback finished after %s":     "%s で再生が終了しました",
		"Rendered frame %d (%dx%d)":      "フレーム %d を描画しました (%dx%d)",
		"Failed to convert frame %d: %v": "フレーム %d の変換に失敗しました: %v",
		"Failed to save frame %d: %v":    "フレーム %d の保存に失敗しました: %v",
		"Failed to save frame index: %v": "フレームインデックスの保存に失敗しました: %v",
		"Failed to save report: %v":      "レポートの保存に失敗しました: %v",
		"Failed to stop playback: %v":    "再生の停止に失敗しました: %v",

		// Session
		"Loaded %s %dx%d, %d frames at %.3f fps (%s)":   "%s %dx%d を読み込みました。%d フレーム、%.3f fps (%s)",
		"Audio %d Hz, %d channels, %d samples":          "音声 %d Hz、%d チャンネル、%d サンプル",
		"Audio disabled: %v":                            "音声を無効化しました: %v",
		"Skipping video track %d: unsupported codec %s": "映像トラック %d をスキップ: 未対応のコーデック %s",
		"Skipping video track %d: %v":                   "映像トラック %d をスキップ: %v",
		"Ignoring %s track %d":                          "%s トラック %d を無視します",
		"Failed to index video track %d: %v":            "映像トラック %d のインデックス作成に失敗しました: %v",
		"No playable video track":                       "再生可能な映像トラックがありません",
		"Failed to derive stream timing: %v":            "ストリームのタイミングを決定できません: %v",
		"Failed to stop audio device: %v":               "音声デバイスの停止に失敗しました: %v",
		"Failed to close audio device: %v":              "音声デバイスのクローズに失敗しました: %v",
		"Unloaded":                                      "アンロードしました",
		"Skipped %d undecodable audio packets":          "デコードできない音声パケット %d 個をスキップしました",

		// Decode cursor and seeking
		"Decoding frames %d..%d":             "フレーム %d..%d をデコード中",
		"Skipping frame %d: %v":              "フレーム %d をスキップ: %v",
		"Failed to reinitialize decoder: %v": "デコーダの再初期化に失敗しました: %v",
		"Seeking from frame %d to %d":        "フレーム %d から %d へシーク中",
		"Playing from frame %d":              "フレーム %d から再生します",

		// Generation stages
		"Generating %d frames at %dx%d, %.2f fps":   "%d フレームを %dx%d、%.2f fps で生成中",
		"Drawing %d frames with %d workers":         "%d フレームを %d ワーカーで描画中",
		"Failed to draw frames: %v":                 "フレームの描画に失敗しました: %v",
		"Encoding video with quantizer %d":          "量子化パラメータ %d で動画をエンコード中",
		"Encoded %d frames, %d keyframes, %d bytes": "%d フレーム、キーフレーム %d、%d バイトをエンコードしました",
		"Failed to encode video: %v":                "動画のエンコードに失敗しました: %v",
		"Muxed %d streams into %d bytes of %s":      "%d ストリームを %d バイトの %s に多重化しました",
		"Failed to write container: %v":             "コンテナの書き込みに失敗しました: %v",
		"Failed to write output: %v":                "出力の書き込みに失敗しました: %v",
	})
}
