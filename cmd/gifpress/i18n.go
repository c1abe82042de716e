// Package main provides localization for the gifpress CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Encode frame sequences into optimized animated GIFs": "フレーム列を最適化されたアニメーションGIFにエンコード",

		// Version command
		"gifpress version %s": "gifpress バージョン %s",

		// Jobs
		"Encoding":                  "エンコード中",
		"Debug output enabled: %s":  "デバッグ出力が有効です: %s",
		"Summary saved to %s":       "サマリーを %s に保存しました",
		"Frames: %d expected, %d sampled": "フレーム: 予定 %d, サンプル %d",

		// Probe command
		"Codec: %s": "コーデック: %s",
		"Video: %dx%d, %d samples, %.2fs (%.2f fps)": "動画: %dx%d, %d サンプル, %.2f秒 (%.2f fps)",
		"Layout: fragmented":                         "構造: フラグメント化",
		"GIF: %dx%d, %d frames at %.2f fps":          "GIF: %dx%d, %d フレーム (%.2f fps)",
	})
}
