package anilist

const mediaFields = `
      id
      title { english romaji }
      coverImage { large }
      description(asHtml: false)`

func pageQuery(args, filter string) string {
	return `query (` + args + `) {
  Page(page: $page, perPage: $perPage) {
    media(` + filter + `) {` + mediaFields + `
    }
  }
}`
}

var queries = map[List]string{
	ListAiring:   pageQuery("$page: Int, $perPage: Int", "type: ANIME, status: RELEASING, sort: POPULARITY_DESC"),
	ListTop:      pageQuery("$page: Int, $perPage: Int", "type: ANIME, sort: SCORE_DESC"),
	ListSeason:   pageQuery("$page: Int, $perPage: Int, $season: MediaSeason, $seasonYear: Int", "season: $season, seasonYear: $seasonYear, type: ANIME, sort: POPULARITY_DESC"),
	ListPopular:  pageQuery("$page: Int, $perPage: Int", "type: ANIME, sort: POPULARITY_DESC"),
	ListUpcoming: pageQuery("$page: Int, $perPage: Int", "type: ANIME, status: NOT_YET_RELEASED, sort: POPULARITY_DESC"),
	ListTrending: pageQuery("$page: Int, $perPage: Int", "type: ANIME, sort: TRENDING_DESC"),
	ListNextToWatch: `query ($page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    media(type: ANIME, sort: POPULARITY_DESC) {` + mediaFields + `
      recommendations(sort: RATING_DESC, perPage: 5) {
        nodes {
          mediaRecommendation {` + mediaFields + `
          }
        }
      }
    }
  }
}`,
}
