package git

// ConfigureIdentity 配置提交者信息（仅当前仓库）
func (c *CLI) ConfigureIdentity(name, email string) error {
	if _, err := c.run("config", "user.name", name); err != nil {
		return err
	}
	if _, err := c.run("config", "user.email", email); err != nil {
		return err
	}
	return nil
}

// SetRemote 将 origin 指向 remoteURL（通常带 token）
func (c *CLI) SetRemote(remoteURL string) error {
	_, err := c.run("remote", "set-url", "origin", remoteURL)
	return err
}
