// Package spider runs the note, user, search and comment fetch flows.
//
// A Service is built once with its collaborators injected:
//
//	svc, err := spider.NewService(spider.Settings{DefaultCookies: cookies, ConcurrentNotes: 3}, spider.Deps{
//		Notes:   xhs.NewClient(transform),
//		Creator: xhs.NewCreatorClient(transform),
//		Manager: manager,
//	})
//
// Batch flows skip notes that fail and keep going. Media for the surviving
// notes is saved on a bounded worker pool and the export covers every
// surviving note, whether or not its media was saved.
package spider
