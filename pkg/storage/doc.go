// Package storage persists crawl results on disk.
//
// A Manager owns two roots, one for note and user media and one for tabular
// exports. Note media lands in
//
//	{media}/{nickname}_{user_id}/{title}_{note_id}/
//
// next to an info.json and a detail.txt describing the note. MediaSaver
// retries the whole note as a unit; files that already completed are kept.
//
// Exporter writes one header row plus one row per record, as xlsx (excelize)
// or csv (gocsv). Every file is written through a temporary file and renamed
// into place.
package storage
