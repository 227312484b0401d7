// Package source loads the CNCF Kubestronaut page and turns the location filter
// into region and country entries.
//
// Two extractors are provided: Headless drives Chrome through chromedp and reads
// the rendered options, Static fetches the HTML with colly and reads the options
// with goquery. Both return the raw option text; Parse applies the partition
// rule shared by either path.
package source
