package posts

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/buzzblog/postrpc/cmd/util"
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [text]",
		Short: "Creates a post authored by the requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.PostClient) error {
				p, err := c.CreatePost(requestMetadata(), args[0])
				if err != nil {
					return err
				}
				printPost(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [postID]",
		Short: "Retrieves the standard view of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID("postID", args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *client.PostClient) error {
				p, err := c.RetrieveStandardPost(requestMetadata(), postID)
				if err != nil {
					return err
				}
				printPost(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	expandedCmd = &cobra.Command{
		Use:   "expanded [postID]",
		Short: "Retrieves a post together with its author and like count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID("postID", args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *client.PostClient) error {
				p, err := c.RetrieveExpandedPost(requestMetadata(), postID)
				if err != nil {
					return err
				}
				printPost(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [postID]",
		Short: "Deletes a post (only allowed for its author)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parseID("postID", args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *client.PostClient) error {
				if err := c.DeletePost(requestMetadata(), postID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted successfully")
				return nil
			})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists posts, optionally filtered by author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := post.PostQuery{}
			if author := viper.GetInt32("author"); author >= 0 {
				query = post.ByAuthor(author)
			}
			return withClient(func(c *client.PostClient) error {
				posts, err := c.ListPosts(requestMetadata(), query, viper.GetInt32("limit"), viper.GetInt32("offset"))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range posts {
					printPost(out, p)
				}
				fmt.Fprintf(out, "%d posts\n", len(posts))
				return nil
			})
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [authorID]",
		Short: "Counts the posts of an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authorID, err := parseID("authorID", args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *client.PostClient) error {
				n, err := c.CountPostsByAuthor(requestMetadata(), authorID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "author=%d, posts=%d\n", authorID, n)
				return nil
			})
		},
	}
)

func init() {
	key := "author"
	listCmd.Flags().Int32(key, -1, util.WrapString("Only list posts of this account (-1 = all authors)"))
	key = "limit"
	listCmd.Flags().Int32(key, 10, util.WrapString("Maximum number of posts to return"))
	key = "offset"
	listCmd.Flags().Int32(key, 0, util.WrapString("Number of posts to skip"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func parseID(name, s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}
	return int32(id), nil
}

func printPost(w io.Writer, p post.Post) {
	fmt.Fprintf(w, "id=%d, author=%d, active=%t, created=%s, text=%q\n",
		p.ID, p.AuthorID, p.Active, time.Unix(p.CreatedAt, 0).UTC().Format(time.RFC3339), p.Text)
	if p.IsExpanded() {
		fmt.Fprintf(w, "  author: username=%s, name=%s %s, active=%t, likes=%d\n",
			p.Author.Username, p.Author.FirstName, p.Author.LastName, p.Author.Active, p.NLikes)
	}
}
