// Package fetch extracts XML download links from a saved HTML listing page
// and downloads each one into a flat directory.
//
// # Link selection
//
// Every anchor carrying an href is considered. An anchor is a candidate when
// its href ends in ".xml" or its lower-cased text mentions "xml". The href is
// resolved against the page's base URL and kept only if the resolved path
// ends in ".xml"; text-only matches pointing at landing pages are dropped.
// Candidates are deduplicated by resolved URL in discovery order.
//
// # Downloading
//
// Candidates are fetched one at a time. A file that already exists in the
// download directory is skipped without a request, so re-running after a
// partial run only fetches what is missing. Bodies are streamed into a
// ".part" file that is renamed into place once complete. A failure on one
// candidate is reported and the run moves on to the next.
//
// # Usage
//
//	d := fetch.NewDownloader(fetch.WithTimeout(30 * time.Second))
//	summary, err := d.Run(ctx, "data/roadworks_page.html", baseURL, "data/downloaded_xml_files")
package fetch
