package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Encoding %dx%d GIF at quality %.2f": "%dx%d のGIFを品質 %.2f でエンコード中",
		"Estimated size: %d bytes (%s)":      "推定サイズ: %d バイト (%s)",
		"GIF encoded: %d frames, %d bytes":   "GIFエンコード完了: %d フレーム, %d バイト",
		"Output saved to %s":                 "出力を %s に保存しました",
		"Interrupted, shutting down...":      "中断されました。シャットダウン中...",

		// Image source
		"Loaded frame %d from %s": "フレーム %d を %s から読み込みました",

		// Encode stage
		"Dropped frame %d: timestamp %.3fs does not increase": "フレーム %d を破棄しました: タイムスタンプ %.3f秒 が増加していません",
		"Submitted %d frames (%d read, %d dropped)":            "%d フレームを送信しました (読み込み %d, 破棄 %d)",

		// Estimate stage
		"Too few frames to sample (%d), using heuristic estimate": "サンプルのフレームが不足しています (%d)。経験則で推定します",
		"Sampled %d of %d frames: %d bytes, estimate %d bytes":    "%d / %d フレームをサンプリング: %d バイト, 推定 %d バイト",

		// Encoder session
		"Frame %d written: %dx%d at (%d,%d), %d colors, delay %dcs": "フレーム %d を書き込み: %dx%d 位置 (%d,%d), %d 色, 遅延 %d センチ秒",
		"Session cancelled":                      "セッションがキャンセルされました",
		"Session failed: %v":                     "セッションが失敗しました: %v",
		"Session finished: %d frames, %d bytes":  "セッション完了: %d フレーム, %d バイト",

		// Warnings
		"Encoding cancelled":                              "エンコードがキャンセルされました",
		"Size estimation failed: %s":                      "サイズ推定に失敗しました: %s",
		"Dropped %d frames with non-increasing timestamps": "タイムスタンプが増加しない %d フレームを破棄しました",
		"Failed to save debug output: %s":                 "デバッグ出力の保存に失敗しました: %s",
		"Failed to save source frame %d: %v":              "元フレーム %d の保存に失敗しました: %v",
		"Failed to remove partial output %s: %s":          "不完全な出力 %s の削除に失敗しました: %s",

		// Errors
		"Failed to encode GIF: %s":   "GIFのエンコードに失敗しました: %s",
		"Failed to write output: %s": "出力の書き込みに失敗しました: %s",
	})
}
