// Package extractor backs the single-note detail endpoint.
//
// Service guards the lifecycle (enabled, started) and turns an extraction
// into a Detail with a localized message. Native is the Extractor used in
// production: it resolves share and short links, reads the note through
// the signed web API and, when asked, downloads its files into
//
//	{work_directory}/{folder_name}[/{author_id}_{alias}][/{name}]/
//
// File names follow name_format, a space separated list of detail keys.
// Downloaded note ids are kept in download_record.json so repeated requests
// can skip them.
package extractor
