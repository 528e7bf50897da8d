package youtube

type playlistItemsResponse struct {
	NextPageToken string         `json:"nextPageToken"`
	Items         []playlistItem `json:"items"`
}

type playlistItem struct {
	Snippet        *snippet `json:"snippet"`
	ContentDetails struct {
		VideoID          string `json:"videoId"`
		VideoPublishedAt string `json:"videoPublishedAt"`
	} `json:"contentDetails"`
}

type snippet struct {
	Title                  string `json:"title"`
	PublishedAt            string `json:"publishedAt"`
	ChannelID              string `json:"channelId"`
	ChannelTitle           string `json:"channelTitle"`
	VideoOwnerChannelID    string `json:"videoOwnerChannelId"`
	VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
	ResourceID             struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type videosResponse struct {
	Items []video `json:"items"`
}

type video struct {
	ID             string `json:"id"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
	Snippet struct {
		Thumbnails thumbnails `json:"thumbnails"`
	} `json:"snippet"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default *thumbnail `json:"default"`
	Medium  *thumbnail `json:"medium"`
	High    *thumbnail `json:"high"`
	Maxres  *thumbnail `json:"maxres"`
}

// best picks the largest available thumbnail.
func (t thumbnails) best() string {
	for _, th := range []*thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}

	return ""
}
