package ytvideodata

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

const defaultPageURL = "https://youtu.be/"

func (c Client) getFromPage(ctx context.Context, videoId string) (*VideoData, error) {
	base := c.PageURL
	if base == "" {
		base = defaultPageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+videoId, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	var videoData VideoData
	videoData.Title = strings.TrimSuffix(getTitle(doc), " - YouTube")
	videoData.ThumbnailUrl = fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoId)
	videoData.AuthorName = getLinkContent(doc)
	return &videoData, nil
}

func getTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return n.FirstChild.Data
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := getTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func getLinkContent(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "link" {
		var isName bool
		var content string
		for _, attr := range n.Attr {
			switch {
			case attr.Key == "itemprop" && attr.Val == "name":
				isName = true
			case attr.Key == "content":
				content = attr.Val
			}
		}
		if isName {
			return content
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getLinkContent(c); content != "" {
			return content
		}
	}
	return ""
}
